package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"unihive/metrics"
	"unihive/middleware"
	"unihive/models"
	"unihive/utils"
)

var validate = validator.New()

type registerRequest struct {
	Username   string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	Name       string `json:"name" validate:"max=100"`
	University string `json:"university" validate:"max=120"`
}

type loginRequest struct {
	// Username accepts either the username or the e-mail address.
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type resetRequest struct {
	Email    string `json:"email" validate:"required,email"`
	OTP      string `json:"otp" validate:"required,len=6,numeric"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type authResponse struct {
	Message string             `json:"message"`
	Token   string             `json:"token,omitempty"`
	User    *models.PublicUser `json:"user,omitempty"`
}

type Handler struct {
	Users    Users
	OTP      OTPStore
	Mail     Mailer
	TokenTTL time.Duration
}

func NewHandler(users Users, otp OTPStore, mail Mailer, tokenTTL time.Duration) *Handler {
	return &Handler{Users: users, OTP: otp, Mail: mail, TokenTTL: tokenTTL}
}

// decode reads a JSON body into dst and runs the struct validator on it.
// It writes the error response itself and reports whether to continue.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		fields := map[string]string{}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[strings.ToLower(fe.Field())] = fieldMessage(fe)
			}
		}
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"message": "Invalid input", "fields": fields})
		return false
	}
	return true
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "len":
		return "must be " + fe.Param() + " characters"
	case "alphanum":
		return "must contain only letters and digits"
	case "numeric":
		return "must contain only digits"
	}
	return "is invalid"
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (h *Handler) sendOTP(ctx context.Context, p Purpose, email string) error {
	code, err := h.OTP.Issue(ctx, p, email)
	if err != nil {
		return err
	}
	subject, body := otpMessage(p, code)
	if err := h.Mail.Send(ctx, email, subject, body); err != nil {
		return err
	}
	metrics.AuthEvents.WithLabelValues("otp_sent").Inc()
	return nil
}

func (h *Handler) issue(u models.User) (string, error) {
	return middleware.IssueToken(u.UserID, u.Username, u.Role, h.TokenTTL)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	email := normalizeEmail(req.Email)

	if _, err := h.Users.FindByEmail(ctx, email); err == nil {
		utils.RespondWithError(w, http.StatusConflict, "User already exists")
		return
	} else if !errors.Is(err, ErrUserNotFound) {
		log.Printf("[auth] register lookup: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Database error")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[auth] hash password for %s: %v", req.Username, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not process password")
		return
	}

	now := time.Now().UTC()
	user := models.User{
		UserID:     "u" + utils.GetUUID(),
		Username:   req.Username,
		Email:      email,
		Password:   string(hashed),
		Role:       []string{"user"},
		Name:       utils.StripHTML(req.Name),
		University: utils.StripHTML(req.University),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.Users.Insert(ctx, user); err != nil {
		if errors.Is(err, ErrUserExists) {
			utils.RespondWithError(w, http.StatusConflict, "User already exists")
			return
		}
		log.Printf("[auth] insert user: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}
	metrics.AuthEvents.WithLabelValues("registered").Inc()

	// The account exists now; a failed mail can be retried through request-otp.
	if err := h.sendOTP(ctx, PurposeVerify, email); err != nil {
		log.Printf("[auth] send verification otp to %s: %v", email, err)
	}

	pub := user.Public()
	utils.RespondWithJSON(w, http.StatusCreated, authResponse{
		Message: "OTP sent to email. Please verify to complete registration.",
		User:    &pub,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()

	var (
		user models.User
		err  error
	)
	if strings.Contains(req.Username, "@") {
		user, err = h.Users.FindByEmail(ctx, normalizeEmail(req.Username))
	} else {
		user, err = h.Users.FindByUsername(ctx, req.Username)
	}
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		log.Printf("[auth] login lookup: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		metrics.AuthEvents.WithLabelValues("login_failed").Inc()
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if !user.EmailVerified {
		utils.RespondWithError(w, http.StatusForbidden, "User not verified. Please check your email for the OTP.")
		return
	}

	token, err := h.issue(user)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	if err := h.Users.TouchLogin(ctx, user.UserID, time.Now().UTC()); err != nil {
		log.Printf("[auth] update last login for %s: %v", user.UserID, err)
	}
	metrics.AuthEvents.WithLabelValues("login_ok").Inc()

	pub := user.Public()
	utils.RespondWithJSON(w, http.StatusOK, authResponse{Message: "Login successful", Token: token, User: &pub})
}

func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req verifyRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	email := normalizeEmail(req.Email)

	if err := h.OTP.Consume(ctx, PurposeVerify, email, req.OTP); err != nil {
		if !errors.Is(err, ErrInvalidOTP) {
			log.Printf("[auth] consume otp: %v", err)
		}
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired OTP")
		return
	}
	if err := h.Users.MarkVerified(ctx, email); err != nil {
		log.Printf("[auth] mark verified %s: %v", email, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to verify user")
		return
	}
	user, err := h.Users.FindByEmail(ctx, email)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to verify user")
		return
	}
	token, err := h.issue(user)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	metrics.AuthEvents.WithLabelValues("verified").Inc()

	pub := user.Public()
	utils.RespondWithJSON(w, http.StatusOK, authResponse{Message: "User verified successfully", Token: token, User: &pub})
}

func (h *Handler) RequestOTP(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req emailRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	email := normalizeEmail(req.Email)

	user, err := h.Users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrUserNotFound):
		// Same answer as success so addresses cannot be probed.
	case err != nil:
		log.Printf("[auth] request otp lookup: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Database error")
		return
	case user.EmailVerified:
		utils.RespondWithError(w, http.StatusConflict, "Email already verified")
		return
	default:
		if err := h.sendOTP(ctx, PurposeVerify, email); err != nil {
			log.Printf("[auth] resend otp to %s: %v", email, err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to send OTP")
			return
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, authResponse{Message: "If the account exists, a new OTP has been sent."})
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req emailRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	email := normalizeEmail(req.Email)

	_, err := h.Users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrUserNotFound):
	case err != nil:
		log.Printf("[auth] forgot password lookup: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Database error")
		return
	default:
		if err := h.sendOTP(ctx, PurposeReset, email); err != nil {
			log.Printf("[auth] send reset otp to %s: %v", email, err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to send OTP")
			return
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, authResponse{Message: "If the account exists, a reset code has been sent."})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req resetRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	email := normalizeEmail(req.Email)

	if err := h.OTP.Consume(ctx, PurposeReset, email, req.OTP); err != nil {
		if !errors.Is(err, ErrInvalidOTP) {
			log.Printf("[auth] consume reset otp: %v", err)
		}
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired OTP")
		return
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not process password")
		return
	}
	if err := h.Users.SetPassword(ctx, email, string(hashed)); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("[auth] set password for %s: %v", email, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to reset password")
		return
	}
	// Receiving the reset code proves ownership of the address.
	if err := h.Users.MarkVerified(ctx, email); err != nil {
		log.Printf("[auth] mark verified after reset %s: %v", email, err)
	}
	metrics.AuthEvents.WithLabelValues("password_reset").Inc()
	utils.RespondWithJSON(w, http.StatusOK, authResponse{Message: "Password updated"})
}
