package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"memviz/internal/services"
)

type HostController struct {
	cache *services.HostCache
}

func NewHostController(cache *services.HostCache) *HostController {
	return &HostController{cache: cache}
}

func (hc *HostController) GetMemory(c *gin.Context) {
	memory, err := hc.cache.Get()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, memory)
}
