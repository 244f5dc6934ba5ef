package auth

import (
	"net/http"

	"seatline/internal/shared/apperror"
	"seatline/internal/shared/middleware"
	"seatline/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller interface {
	Login(c *gin.Context)
	RefreshToken(c *gin.Context)
	ChangePassword(c *gin.Context)
	GetMe(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

func (ctrl *controller) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apperror.Validation(apperror.CodeInvalidRequest, "invalid request body: "+err.Error()))
		return
	}

	resp, err := ctrl.service.Login(c.Request.Context(), &req)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondOK(c, "Login successful", resp)
}

func (ctrl *controller) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apperror.Validation(apperror.CodeInvalidRequest, "invalid request body: "+err.Error()))
		return
	}

	tokenPair, err := ctrl.service.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondOK(c, "Token refreshed successfully", tokenPair)
}

func (ctrl *controller) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apperror.Validation(apperror.CodeInvalidRequest, "invalid request body: "+err.Error()))
		return
	}

	if err := ctrl.service.ChangePassword(c.Request.Context(), middleware.ActorID(c), &req); err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Password changed successfully", nil, nil)
}

func (ctrl *controller) GetMe(c *gin.Context) {
	me, err := ctrl.service.Me(c.Request.Context(), middleware.ActorID(c))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, "Employee retrieved", me)
}
