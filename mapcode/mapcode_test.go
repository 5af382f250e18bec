// Copyright 2026 The Mapcode Workbench Authors
// SPDX-License-Identifier: Apache-2.0

package mapcode

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCodeWithTerritory(t *testing.T) {
	tests := []struct {
		name string
		mc   Mapcode
		want string
	}{
		{
			name: "territory prefixed",
			mc:   Mapcode{Code: "49.4V", Territory: "NLD"},
			want: "NLD 49.4V",
		},
		{
			name: "international omits prefix",
			mc:   Mapcode{Code: "VHXGB.1J9J", Territory: TerritoryInternational},
			want: "VHXGB.1J9J",
		},
		{
			name: "missing territory treated as international",
			mc:   Mapcode{Code: "VHXGB.1J9J"},
			want: "VHXGB.1J9J",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mc.CodeWithTerritory(); got != tt.want {
				t.Errorf("CodeWithTerritory() = %q, want %q", got, tt.want)
			}
		})
	}
}

func newCodecServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/codes/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{
			"mapcodes": [
				{"mapcode": "49.4V", "territory": "NLD"},
				{"mapcode": "VHXGB.1J9J", "territory": "AAA"}
			],
			"international": {"mapcode": "VHXGB.1J9J"}
		}`)
	})
	mux.HandleFunc("/coords/49.4V", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("territory") != "NLD" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"errors": [{"message": "territory required"}]}`)

			return
		}

		fmt.Fprint(w, `{"latDeg": 52.376514, "lonDeg": 4.908542}`)
	})
	mux.HandleFunc("/coords/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"errors": [{"message": "no such mapcode"}]}`)
	})

	return httptest.NewServer(mux)
}

func TestRESTGatewayEncode(t *testing.T) {
	srv := newCodecServer(t)
	defer srv.Close()

	gw := NewRESTGatewayURL(srv.URL)

	codes, err := gw.Encode(52.376514, 4.908542)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	if len(codes) != 2 {
		t.Fatalf("Encode() returned %d mapcodes, want 2", len(codes))
	}

	if codes[0].Code != "49.4V" || codes[0].Territory != "NLD" {
		t.Errorf("best mapcode = %+v, want NLD 49.4V", codes[0])
	}

	if codes[1].Territory != TerritoryInternational {
		t.Errorf("last mapcode territory = %s, want international", codes[1].Territory)
	}
}

func TestRESTGatewayDecode(t *testing.T) {
	srv := newCodecServer(t)
	defer srv.Close()

	gw := NewRESTGatewayURL(srv.URL)

	point, err := gw.Decode("NLD 49.4V")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if point.Lat != 52.376514 || point.Lng != 4.908542 {
		t.Errorf("Decode() = %v", point)
	}

	if _, err := gw.Decode("XYZ.NOPE"); !errors.Is(err, ErrUnknownMapcode) {
		t.Errorf("Decode() error = %v, want ErrUnknownMapcode", err)
	}

	if _, err := gw.Decode("  "); !errors.Is(err, ErrUnknownMapcode) {
		t.Errorf("Decode() of blank input error = %v, want ErrUnknownMapcode", err)
	}
}

func TestRESTGatewayEncodeDecodeRoundTrip(t *testing.T) {
	srv := newCodecServer(t)
	defer srv.Close()

	gw := NewRESTGatewayURL(srv.URL)

	codes, err := gw.Encode(52.376514, 4.908542)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	point, err := gw.Decode(codes[0].CodeWithTerritory())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	const precision = 1e-4 // documented codec precision, a few meters

	if diff := point.Lat - 52.376514; diff > precision || diff < -precision {
		t.Errorf("round-trip latitude drifted: %f", point.Lat)
	}

	if diff := point.Lng - 4.908542; diff > precision || diff < -precision {
		t.Errorf("round-trip longitude drifted: %f", point.Lng)
	}
}
