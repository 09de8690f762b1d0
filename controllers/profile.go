package controllers

import (
	"net/http"
	"strings"

	"SportLink/models"
	utils "SportLink/pkg/utills"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Profile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := currentUserID(c)

		var user models.User
		if err := db.First(&user, uid).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"msg": "User not found"})
			return
		}

		if c.Request.Method == http.MethodGet {
			c.JSON(http.StatusOK, gin.H{
				"id":           user.ID,
				"email":        user.Email,
				"username":     user.Username,
				"display_name": user.DisplayName,
				"headline":     user.Headline,
				"sport":        user.Sport,
				"avatar_url":   user.AvatarURL,
			})
			return
		}

		// PUT
		var body struct {
			Email       string `json:"email"`
			DisplayName string `json:"display_name"`
			Headline    string `json:"headline"`
			Sport       string `json:"sport"`
			AvatarURL   string `json:"avatar_url"`
			Password    string `json:"password"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request"})
			return
		}

		newEmail := strings.TrimSpace(strings.ToLower(body.Email))
		if newEmail == "" {
			newEmail = user.Email
		}
		if newEmail != user.Email {
			var t models.User
			if err := db.Where("email = ?", newEmail).First(&t).Error; err == nil {
				c.JSON(http.StatusConflict, gin.H{"msg": "Email already exists"})
				return
			}
		}

		user.Email = newEmail
		if v := strings.TrimSpace(body.DisplayName); v != "" {
			user.DisplayName = v
		}
		if v := strings.TrimSpace(body.Headline); v != "" {
			user.Headline = v
		}
		if v := strings.TrimSpace(body.Sport); v != "" {
			user.Sport = v
		}
		if v := strings.TrimSpace(body.AvatarURL); v != "" {
			user.AvatarURL = v
		}
		if body.Password != "" {
			if !utils.HasLetter(body.Password) || !utils.HasNumber(body.Password) {
				c.JSON(http.StatusBadRequest, gin.H{"msg": "New password must contain at least one letter and one number"})
				return
			}
			if err := user.SetPassword(body.Password); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to set password"})
				return
			}
		}
		if err := db.Save(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to update profile"})
			return
		}

		// conversation lists cache the displayable identity; drop it so the
		// new name shows up immediately
		invalidateIdentity(user.ID)

		c.JSON(http.StatusOK, gin.H{"msg": "Profile updated successfully"})
	}
}
