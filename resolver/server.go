// Copyright 2026 The Mapcode Workbench Authors
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mapcode-foundation/mapcode-workbench/favourites"
)

// Server exposes the engine, the autocomplete controller and the
// favourites store over HTTP.
type Server struct {
	engine       *Engine
	autocomplete *Autocompleter
	favourites   *favourites.Store
	addr         string
}

func NewServer(engine *Engine, autocomplete *Autocompleter, favs *favourites.Store, addr string) *Server {
	if addr == "" {
		addr = "localhost:8080"
	}

	return &Server{
		engine:       engine,
		autocomplete: autocomplete,
		favourites:   favs,
		addr:         addr,
	}
}

func (s *Server) Run() error {
	return s.router().Run(s.addr)
}

func (s *Server) router() *gin.Engine {
	r := gin.Default()

	r.GET("/api/state", s.getState)
	r.POST("/api/camera", s.moveCamera)
	r.POST("/api/address", s.submitAddress)
	r.POST("/api/address/focus", s.focusAddress)
	r.POST("/api/latitude", s.submitLatitude)
	r.POST("/api/longitude", s.submitLongitude)
	r.POST("/api/mapcode", s.submitMapcode)
	r.POST("/api/mapcode/select", s.selectMapcode)
	r.POST("/api/mapcode/copy", s.copyMapcode)
	r.POST("/api/autocomplete", s.autocompleteQuery)
	r.POST("/api/autocomplete/pick", s.autocompletePick)

	r.GET("/api/favourites", s.listFavourites)
	r.POST("/api/favourites", s.createFavourite)
	r.GET("/api/favourites/nearby", s.nearbyFavourites)
	r.GET("/api/favourites/:id", s.getFavourite)
	r.PUT("/api/favourites/:id", s.updateFavourite)
	r.DELETE("/api/favourites/:id", s.deleteFavourite)

	return r
}

func (s *Server) getState(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.engine.Current())
}

type cameraRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      float64 `json:"zoom"`
}

func (s *Server) moveCamera(ctx *gin.Context) {
	var req cameraRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	zoom := req.Zoom
	if zoom == 0 {
		zoom = s.engine.Current().Zoom
	}

	s.engine.MoveCamera(req.Latitude, req.Longitude, zoom)
	ctx.JSON(http.StatusAccepted, gin.H{"status": "ok"})
}

type textRequest struct {
	Text string `json:"text"`
}

func (s *Server) submitAddress(ctx *gin.Context) {
	var req textRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	s.engine.SubmitAddress(req.Text)
	ctx.JSON(http.StatusAccepted, gin.H{"status": "ok"})
}

type focusRequest struct {
	Focused bool `json:"focused"`
}

func (s *Server) focusAddress(ctx *gin.Context) {
	var req focusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	s.engine.FocusAddress(req.Focused)
	ctx.JSON(http.StatusAccepted, gin.H{"status": "ok"})
}

func (s *Server) submitLatitude(ctx *gin.Context) {
	var req textRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	s.engine.SubmitLatitude(req.Text)
	ctx.JSON(http.StatusAccepted, gin.H{"status": "ok"})
}

func (s *Server) submitLongitude(ctx *gin.Context) {
	var req textRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	s.engine.SubmitLongitude(req.Text)
	ctx.JSON(http.StatusAccepted, gin.H{"status": "ok"})
}

func (s *Server) submitMapcode(ctx *gin.Context) {
	var req textRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	s.engine.SubmitMapcode(req.Text)
	ctx.JSON(http.StatusAccepted, gin.H{"status": "ok"})
}

type selectRequest struct {
	Index int `json:"index"`
}

func (s *Server) selectMapcode(ctx *gin.Context) {
	var req selectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	s.engine.SelectMapcode(req.Index)
	ctx.JSON(http.StatusAccepted, gin.H{"status": "ok"})
}

func (s *Server) copyMapcode(ctx *gin.Context) {
	s.engine.CopySelectedMapcode()
	ctx.JSON(http.StatusAccepted, gin.H{"status": "ok"})
}

func (s *Server) autocompleteQuery(ctx *gin.Context) {
	var req textRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	s.autocomplete.QueryChanged(req.Text)
	ctx.JSON(http.StatusAccepted, gin.H{"status": "ok"})
}

func (s *Server) autocompletePick(ctx *gin.Context) {
	var req textRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	s.autocomplete.Pick(req.Text)
	ctx.JSON(http.StatusAccepted, gin.H{"status": "ok"})
}

func (s *Server) listFavourites(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.favourites.List())
}

type favouriteRequest struct {
	Name      string  `json:"name" binding:"required"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (s *Server) createFavourite(ctx *gin.Context) {
	var req favouriteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	id, err := s.favourites.Create(req.Name, req.Latitude, req.Longitude)
	if err != nil {
		ctx.JSON(favouriteStatus(err), gin.H{"error": err.Error()})

		return
	}

	entity, err := s.favourites.Get(id)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusCreated, entity)
}

func (s *Server) getFavourite(ctx *gin.Context) {
	entity, err := s.favourites.Get(ctx.Param("id"))
	if err != nil {
		ctx.JSON(favouriteStatus(err), gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, entity)
}

func (s *Server) updateFavourite(ctx *gin.Context) {
	var req favouriteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	entity := favourites.Entity{
		ID:   ctx.Param("id"),
		Name: req.Name,
		Lat:  req.Latitude,
		Lng:  req.Longitude,
	}

	if err := s.favourites.Update(entity); err != nil {
		ctx.JSON(favouriteStatus(err), gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, entity)
}

func (s *Server) deleteFavourite(ctx *gin.Context) {
	if err := s.favourites.Delete(ctx.Param("id")); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.Status(http.StatusNoContent)
}

func (s *Server) nearbyFavourites(ctx *gin.Context) {
	lat, err := strconv.ParseFloat(ctx.Query("latitude"), 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid latitude parameter"})

		return
	}

	lng, err := strconv.ParseFloat(ctx.Query("longitude"), 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid longitude parameter"})

		return
	}

	entities, err := s.favourites.Nearby(lat, lng)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, entities)
}

func favouriteStatus(err error) int {
	switch {
	case errors.Is(err, favourites.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, favourites.ErrDuplicateLocation):
		return http.StatusConflict
	case errors.Is(err, favourites.ErrEmptyName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
