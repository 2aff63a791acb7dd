package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type API struct {
	Store *Store
}

type validateRequest struct {
	Email string `json:"email" binding:"required"`
}

func (a *API) handleValidate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "missing email"})
		return
	}

	exists, err := a.Store.EmailExists(c.Request.Context(), req.Email)
	if err != nil {
		log.Error().Err(err).Str("module", "server").Msg("email lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

type loginRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (a *API) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "missing credentials"})
		return
	}

	if err := a.Store.Authenticate(c.Request.Context(), req.UserID, req.Password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
			return
		}
		log.Error().Err(err).Str("module", "server").Msg("login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "login failed"})
		return
	}
	log.Info().Str("module", "server").Str("user", req.UserID).Msg("user logged in")
	c.JSON(http.StatusOK, gin.H{"message": "login successful"})
}

type registerRequest struct {
	Firstname string `json:"firstname" binding:"required"`
	UserID    string `json:"user_id" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

func (a *API) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "missing registration fields"})
		return
	}

	if err := a.Store.CreateUser(c.Request.Context(), req.Firstname, req.UserID, req.Password); err != nil {
		if errors.Is(err, ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"message": "user already exists"})
			return
		}
		log.Error().Err(err).Str("module", "server").Msg("registration failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "registration failed"})
		return
	}
	log.Info().Str("module", "server").Str("user", req.UserID).Msg("user registered")
	c.JSON(http.StatusCreated, gin.H{"message": "registration successful"})
}
