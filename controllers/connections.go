package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"SportLink/models"
	"SportLink/pkg/connections"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RequestConnection sends a connection request to another user.
func RequestConnection(svc *connections.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := currentUserID(c)

		var body struct {
			UserID uint `json:"user_id"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || body.UserID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "user_id is required"})
			return
		}

		conn, err := svc.Request(uid, body.UserID)
		switch {
		case errors.Is(err, connections.ErrSelfConnection):
			c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
			return
		case errors.Is(err, connections.ErrAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"msg": err.Error()})
			return
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"id":           conn.ID,
			"recipient_id": conn.RecipientID,
			"status":       conn.Status,
		})
	}
}

// AcceptConnection accepts a pending request addressed to the caller.
func AcceptConnection(svc *connections.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := currentUserID(c)
		connID, _ := strconv.Atoi(c.Param("connection_id"))

		err := svc.Accept(uint(connID), uid)
		switch {
		case errors.Is(err, connections.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"msg": err.Error()})
			return
		case errors.Is(err, connections.ErrNotRecipient):
			c.JSON(http.StatusForbidden, gin.H{"msg": err.Error()})
			return
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"msg": "connection accepted"})
	}
}

// ListConnections returns the caller's connections, each enriched with
// the other user's identity.
func ListConnections(svc *connections.Service, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := currentUserID(c)

		conns, err := svc.ListFor(uid)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}

		rows := make([]gin.H, 0, len(conns))
		for _, conn := range conns {
			otherID := conn.RequesterID
			if otherID == uid {
				otherID = conn.RecipientID
			}
			other, err := publicIdentity(db, otherID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
				return
			}
			rows = append(rows, gin.H{
				"id":       conn.ID,
				"user":     other,
				"status":   conn.Status,
				"incoming": conn.RecipientID == uid && conn.Status == models.ConnectionPending,
			})
		}
		c.JSON(http.StatusOK, gin.H{"connections": rows})
	}
}
