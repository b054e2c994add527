package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wattrewards/wattrewards/internal/services"
	appErrors "github.com/wattrewards/wattrewards/pkg/errors"
	"github.com/wattrewards/wattrewards/pkg/response"
)

// Verification outcomes surfaced to clients. All are 400s so apps can branch on the code.
var (
	ErrOTPInvalid = appErrors.New("OTP_INVALID", "The code you entered is incorrect", http.StatusBadRequest)
	ErrOTPExpired = appErrors.New("OTP_EXPIRED", "The code has expired, please request a new one", http.StatusBadRequest)
	ErrOTPMissing = appErrors.New("OTP_NOT_FOUND", "No active code for this number, please request a new one", http.StatusBadRequest)
)

// OTPHandler exposes the unauthenticated phone verification endpoints.
type OTPHandler struct {
	service *services.OTPService
}

// NewOTPHandler constructs an OTP handler.
func NewOTPHandler(service *services.OTPService) (*OTPHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("otp handler: service is required")
	}
	return &OTPHandler{service: service}, nil
}

type sendOTPRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,max=32"`
}

type verifyOTPRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,max=32"`
	OTP         string `json:"otp" validate:"required"`
}

// Send issues a code to the phone number.
func (h *OTPHandler) Send(c *gin.Context) {
	var payload sendOTPRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	if _, err := h.service.SendCode(requestContext(c), payload.PhoneNumber); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "OTP sent successfully")
}

// Resend discards any active code and issues a new one.
func (h *OTPHandler) Resend(c *gin.Context) {
	var payload sendOTPRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	if _, err := h.service.ResendCode(requestContext(c), payload.PhoneNumber); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "OTP resent successfully")
}

// Verify checks a submitted code.
func (h *OTPHandler) Verify(c *gin.Context) {
	var payload verifyOTPRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	result, err := h.service.VerifyCode(requestContext(c), payload.PhoneNumber, payload.OTP)
	if err != nil {
		response.Error(c, err)
		return
	}

	switch result {
	case services.VerifyResultVerified:
		response.Message(c, http.StatusOK, "Phone number verified successfully")
	case services.VerifyResultExpired:
		response.Error(c, ErrOTPExpired)
	case services.VerifyResultNotFound:
		response.Error(c, ErrOTPMissing)
	default:
		response.Error(c, ErrOTPInvalid)
	}
}
