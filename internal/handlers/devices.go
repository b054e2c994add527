package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/wattrewards/wattrewards/internal/models"
	"github.com/wattrewards/wattrewards/internal/services"
	"github.com/wattrewards/wattrewards/pkg/errors"
	"github.com/wattrewards/wattrewards/pkg/response"
	appValidator "github.com/wattrewards/wattrewards/pkg/validator"
)

func init() {
	_ = appValidator.Register("device_platform", func(fl validator.FieldLevel) bool {
		return models.DevicePlatform(strings.ToLower(strings.TrimSpace(fl.Field().String()))).Valid()
	}, "must be one of android, ios, web")
}

// DeviceHandler manages the caller's push device tokens.
type DeviceHandler struct {
	service *services.DeviceService
}

// NewDeviceHandler constructs a device handler.
func NewDeviceHandler(service *services.DeviceService) (*DeviceHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("device handler: service is required")
	}
	return &DeviceHandler{service: service}, nil
}

type registerDeviceRequest struct {
	Token    string `json:"token" validate:"required,max=512"`
	Platform string `json:"platform" validate:"required,device_platform"`
}

type unregisterDeviceRequest struct {
	Token string `json:"token" validate:"required,max=512"`
}

// Register stores a push token for the caller.
func (h *DeviceHandler) Register(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var payload registerDeviceRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	if _, err := h.service.Register(requestContext(c), services.RegisterDeviceInput{
		UserID:   userID,
		Token:    payload.Token,
		Platform: models.DevicePlatform(payload.Platform),
	}); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Device registered")
}

// Unregister removes a push token of the caller.
func (h *DeviceHandler) Unregister(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var payload unregisterDeviceRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	if err := h.service.Unregister(requestContext(c), userID, payload.Token); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Device unregistered")
}
