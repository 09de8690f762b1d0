package controllers

import (
	"strconv"
	"time"

	"SportLink/middleware"
	"SportLink/models"
	"SportLink/pkg/cache"
	"SportLink/pkg/config"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PublicIdentity is the displayable slice of a user shown next to
// conversations and messages.
type PublicIdentity struct {
	ID          uint   `json:"id"`
	DisplayName string `json:"display_name"`
	Headline    string `json:"headline,omitempty"`
	Sport       string `json:"sport,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

func currentUserID(c *gin.Context) uint {
	raw, _ := c.Get(middleware.ContextUserIDKey)
	uidStr, _ := raw.(string)
	uid, _ := strconv.Atoi(uidStr)
	return uint(uid)
}

func displayNameOf(u *models.User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// publicIdentity resolves a user's display identity, cached with a short
// TTL since conversation lists hit the same handful of users repeatedly.
func publicIdentity(db *gorm.DB, userID uint) (PublicIdentity, error) {
	ck := cache.KeyFromStrings("identity", strconv.Itoa(int(userID)))
	if v, ok := cache.Default().Get(ck); ok {
		if ident, ok2 := v.(PublicIdentity); ok2 {
			return ident, nil
		}
	}

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return PublicIdentity{}, err
	}
	ident := PublicIdentity{
		ID:          user.ID,
		DisplayName: displayNameOf(&user),
		Headline:    user.Headline,
		Sport:       user.Sport,
		AvatarURL:   user.AvatarURL,
	}
	cache.Default().Set(ck, ident, time.Duration(config.IdentityCacheTTLSeconds)*time.Second)
	return ident, nil
}

func invalidateIdentity(userID uint) {
	cache.Default().Delete(cache.KeyFromStrings("identity", strconv.Itoa(int(userID))))
}
