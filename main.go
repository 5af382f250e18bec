// Copyright 2026 The Mapcode Workbench Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/mapcode-foundation/mapcode-workbench/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
