// Package auth verifies Telegram Login Widget and Mini App payloads and
// admin credentials, and issues the JWT used by the admin API.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	AuthTelegram = "telegram"
	AuthWebApp   = "telegram_webapp"
	AuthPassword = "password"

	// AdminSubject subject токена при входе по паролю
	AdminSubject = "admin"
)

var (
	ErrInvalid = errors.New("invalid authentication data")
	ErrExpired = errors.New("authentication data is too old")
)

// Config параметры проверки и выпуска токенов
type Config struct {
	BotToken      string
	JWTSecret     string
	TokenTTL      time.Duration
	MaxAuthAge    time.Duration
	AdminUsername string
	AdminPassword string
	AdminIDs      []int64
}

// Identity проверенный пользователь
type Identity struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	PhotoURL  string `json:"photo_url"`
	AuthType  string `json:"auth_type"`
}

// Claims содержимое JWT
type Claims struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	PhotoURL  string `json:"photo_url"`
	AuthType  string `json:"auth_type"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// UserID Telegram ID владельца токена; false для входа по паролю
func (c *Claims) UserID() (int64, bool) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Service проверяет входы и выпускает токены
type Service struct {
	cfg Config
	now func() time.Time
}

func New(cfg Config) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 7 * 24 * time.Hour
	}
	if cfg.MaxAuthAge <= 0 {
		cfg.MaxAuthAge = 24 * time.Hour
	}
	return &Service{cfg: cfg, now: time.Now}
}

// LoginData поля Telegram Login Widget
type LoginData struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	PhotoURL  string `json:"photo_url"`
	AuthDate  int64  `json:"auth_date"`
	Hash      string `json:"hash"`
}

// VerifyLogin проверяет подпись Login Widget: ключ sha256(token бота),
// подписываются непустые поля кроме hash, отсортированные по имени
func (s *Service) VerifyLogin(d LoginData) (Identity, error) {
	if d.ID == 0 || d.Hash == "" {
		return Identity{}, ErrInvalid
	}

	fields := map[string]string{
		"id":         strconv.FormatInt(d.ID, 10),
		"first_name": d.FirstName,
		"last_name":  d.LastName,
		"username":   d.Username,
		"photo_url":  d.PhotoURL,
		"auth_date":  strconv.FormatInt(d.AuthDate, 10),
	}
	for k, v := range fields {
		if v == "" {
			delete(fields, k)
		}
	}

	secret := sha256.Sum256([]byte(s.cfg.BotToken))
	if !validHash(secret[:], dataCheckString(fields), d.Hash) {
		return Identity{}, ErrInvalid
	}
	if err := s.checkAge(d.AuthDate); err != nil {
		return Identity{}, err
	}

	return Identity{
		ID:        strconv.FormatInt(d.ID, 10),
		FirstName: d.FirstName,
		LastName:  d.LastName,
		Username:  d.Username,
		PhotoURL:  d.PhotoURL,
		AuthType:  AuthTelegram,
	}, nil
}

// VerifyWebApp проверяет initData Mini App: ключ HMAC("WebAppData", token бота)
func (s *Service) VerifyWebApp(initData string) (Identity, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	hash := values.Get("hash")
	if hash == "" {
		return Identity{}, ErrInvalid
	}

	fields := make(map[string]string, len(values))
	for k := range values {
		if k != "hash" {
			fields[k] = values.Get(k)
		}
	}

	mac := hmac.New(sha256.New, []byte("WebAppData"))
	mac.Write([]byte(s.cfg.BotToken))
	if !validHash(mac.Sum(nil), dataCheckString(fields), hash) {
		return Identity{}, ErrInvalid
	}

	var user struct {
		ID        int64  `json:"id"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Username  string `json:"username"`
		PhotoURL  string `json:"photo_url"`
	}
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil || user.ID == 0 {
		return Identity{}, fmt.Errorf("%w: no user", ErrInvalid)
	}

	authDate, _ := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err := s.checkAge(authDate); err != nil {
		return Identity{}, err
	}

	return Identity{
		ID:        strconv.FormatInt(user.ID, 10),
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Username:  user.Username,
		PhotoURL:  user.PhotoURL,
		AuthType:  AuthWebApp,
	}, nil
}

// VerifyAdmin сравнивает логин и пароль за постоянное время.
// Пустой пароль в конфиге отключает вход.
func (s *Service) VerifyAdmin(username, password string) (Identity, error) {
	if s.cfg.AdminPassword == "" {
		return Identity{}, ErrInvalid
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.AdminUsername))
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.AdminPassword))
	if userOK&passOK != 1 {
		return Identity{}, ErrInvalid
	}
	return Identity{ID: AdminSubject, FirstName: "Admin", Username: s.cfg.AdminUsername, AuthType: AuthPassword}, nil
}

// Role вход по паролю и Telegram ID из белого списка дают admin
func (s *Service) Role(id Identity) string {
	if id.AuthType == AuthPassword {
		return RoleAdmin
	}
	n, err := strconv.ParseInt(id.ID, 10, 64)
	if err == nil && slices.Contains(s.cfg.AdminIDs, n) {
		return RoleAdmin
	}
	return RoleUser
}

// Issue выпускает HS256 токен
func (s *Service) Issue(id Identity) (string, error) {
	now := s.now()
	claims := Claims{
		FirstName: id.FirstName,
		LastName:  id.LastName,
		Username:  id.Username,
		PhotoURL:  id.PhotoURL,
		AuthType:  id.AuthType,
		Role:      s.Role(id),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Parse проверяет подпись и срок токена
func (s *Service) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return []byte(s.cfg.JWTSecret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("parse token: %w", ErrInvalid)
	}
	return claims, nil
}

func (s *Service) checkAge(authDate int64) error {
	if authDate == 0 {
		return ErrInvalid
	}
	if s.now().Sub(time.Unix(authDate, 0)) > s.cfg.MaxAuthAge {
		return ErrExpired
	}
	return nil
}

func dataCheckString(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+fields[k])
	}
	return strings.Join(lines, "\n")
}

func sign(secret []byte, data string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

func validHash(secret []byte, data, hash string) bool {
	got, err := hex.DecodeString(hash)
	if err != nil {
		return false
	}
	return hmac.Equal(sign(secret, data), got)
}
