package handlers

import (
	"hostreport/internal/models"

	"github.com/gin-gonic/gin"
)

// SetToast sets standard toast headers used by the UI.
func SetToast(c *gin.Context, typ, title, msg string) {
	if c == nil {
		return
	}
	if typ != "" {
		c.Header("X-Toast-Type", typ)
	}
	if title != "" {
		c.Header("X-Toast-Title", title)
	}
	if msg != "" {
		c.Header("X-Toast-Message", msg)
	}
}

func ToastError(c *gin.Context, title, msg string) { SetToast(c, "error", title, msg) }

// ToastNotice surfaces the first notice; the rest stay in the response body.
func ToastNotice(c *gin.Context, notices []models.Notice) {
	if len(notices) == 0 {
		return
	}
	n := notices[0]
	SetToast(c, n.Kind, n.Title, n.Message)
}
