package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pquerna/otp/totp"
	"github.com/salarypath/backend/internal/middleware"
	"github.com/salarypath/backend/internal/models"
	"github.com/salarypath/backend/internal/services"
	"github.com/salarypath/backend/pkg/logger"
	"github.com/salarypath/backend/pkg/utils"
	"gorm.io/gorm"
)

type TOTPHandler struct {
	DB    *gorm.DB
	Audit *services.AuditService
}

func NewTOTPHandler(db *gorm.DB, audit *services.AuditService) *TOTPHandler {
	return &TOTPHandler{DB: db, Audit: audit}
}

func (h *TOTPHandler) Status(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var cred models.TOTPCredential
	enrolled := h.DB.First(&cred, "user_id = ?", user.ID).Error == nil

	var verifiedAt *time.Time
	if enrolled {
		verifiedAt = cred.VerifiedAt
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"totpEnabled":    enrolled && cred.Enabled,
		"totpVerifiedAt": verifiedAt,
	})
}

func (h *TOTPHandler) Setup(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var existing models.TOTPCredential
	if err := h.DB.First(&existing, "user_id = ?", user.ID).Error; err == nil && existing.Enabled {
		return utils.Error(c, fiber.StatusConflict, "authenticator is already enabled")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "Salary Path",
		AccountName: user.Email,
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to generate secret")
	}

	encryptedSecret, err := utils.EncryptAESGCM(key.Secret())
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to encrypt secret")
	}

	if existing.ID != [16]byte{} {
		if err := h.DB.Model(&existing).Updates(map[string]interface{}{
			"secret":      encryptedSecret,
			"enabled":     false,
			"verified_at": nil,
		}).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed to update credential")
		}
	} else {
		cred := models.TOTPCredential{
			UserID: user.ID,
			Secret: encryptedSecret,
		}
		if err := h.DB.Create(&cred).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed to save credential")
		}
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"secret": key.Secret(),
		"qrUri":  key.URL(),
	})
}

type verifyTOTPSetupRequest struct {
	Code string `json:"code"`
}

func (h *TOTPHandler) VerifySetup(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req verifyTOTPSetupRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Code == "" {
		return utils.Error(c, fiber.StatusBadRequest, "code is required")
	}

	var cred models.TOTPCredential
	if err := h.DB.First(&cred, "user_id = ?", user.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "authenticator setup not started")
	}
	if cred.Enabled {
		return utils.Error(c, fiber.StatusConflict, "authenticator is already enabled")
	}

	secret := utils.DecryptOrPlaintext(cred.Secret)
	if !totp.Validate(req.Code, secret) {
		return utils.Error(c, fiber.StatusBadRequest, "invalid authenticator code")
	}

	now := time.Now()
	if err := h.DB.Model(&cred).Updates(map[string]interface{}{
		"enabled":     true,
		"verified_at": now,
	}).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to enable authenticator")
	}

	logger.Info("totp_enabled", map[string]interface{}{
		"user_id": user.ID.String(),
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &user.ID,
		Action:       "totp.enabled",
		ResourceType: "user",
		ResourceID:   &user.ID,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"totpEnabled": true,
	})
}

type disableTOTPRequest struct {
	Password string `json:"password"`
	Code     string `json:"code"`
}

func (h *TOTPHandler) Disable(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req disableTOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	var dbUser models.User
	if err := h.DB.First(&dbUser, "id = ?", user.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to load user")
	}
	if !utils.CheckPassword(req.Password, dbUser.PasswordHash) {
		return utils.Error(c, fiber.StatusUnauthorized, "invalid password")
	}

	var cred models.TOTPCredential
	if err := h.DB.First(&cred, "user_id = ? AND enabled = ?", user.ID, true).Error; err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "authenticator is not enabled")
	}

	secret := utils.DecryptOrPlaintext(cred.Secret)
	if !totp.Validate(req.Code, secret) {
		return utils.Error(c, fiber.StatusBadRequest, "invalid authenticator code")
	}

	if err := h.DB.Delete(&cred).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to disable authenticator")
	}

	logger.Info("totp_disabled", map[string]interface{}{
		"user_id": user.ID.String(),
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &user.ID,
		Action:       "totp.disabled",
		ResourceType: "user",
		ResourceID:   &user.ID,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"totpEnabled": false,
	})
}
