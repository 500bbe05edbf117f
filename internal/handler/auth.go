package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taskMaster/backend/internal/middleware"
	"github.com/taskMaster/backend/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email,max=128"`
		Password string `json:"password" binding:"required,min=8,max=72"`
		Name     string `json:"name" binding:"required,max=64"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	user, token, expireAt, err := h.authService.Register(req.Email, req.Password, req.Name)
	if err != nil {
		ServiceError(c, err)
		return
	}

	Success(c, gin.H{
		"user":      user.Brief(),
		"token":     token,
		"expire_at": expireAt,
	})
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	user, token, expireAt, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		ServiceError(c, err)
		return
	}

	Success(c, gin.H{
		"user":      user.Brief(),
		"token":     token,
		"expire_at": expireAt,
	})
}

// GET /auth/me
func (h *AuthHandler) GetMe(c *gin.Context) {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		Unauthorized(c, 40101, "未登录")
		return
	}
	Success(c, gin.H{
		"id":            user.ID,
		"email":         user.Email,
		"name":          user.Name,
		"avatar":        user.Avatar,
		"is_admin":      user.IsAdmin,
		"last_login_at": user.LastLoginAt,
		"created_at":    user.CreatedAt,
	})
}

// GET /users/search
func (h *AuthHandler) SearchUsers(c *gin.Context) {
	keyword := c.Query("keyword")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	var excludeProjectID *uint
	if s := c.Query("exclude_project_id"); s != "" {
		v := parseID(s)
		excludeProjectID = &v
	}

	users, err := h.authService.SearchUsers(keyword, excludeProjectID, limit)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	list := make([]gin.H, 0, len(users))
	for _, u := range users {
		list = append(list, gin.H{
			"id":     u.ID,
			"name":   u.Name,
			"avatar": u.Avatar,
			"email":  u.Email,
		})
	}
	Success(c, list)
}
