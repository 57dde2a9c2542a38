package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lifelens/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrInvalidCredentials 在用户名或密码错误时返回
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUsernameTaken 在注册的用户名已存在时返回
	ErrUsernameTaken = errors.New("username already taken")
	// ErrEmailTaken 在注册的邮箱已被使用时返回
	ErrEmailTaken = errors.New("email already registered")
)

// UserService 负责注册、登录校验与用户读取
type UserService struct {
	db *gorm.DB
}

// SignupInput 定义注册所需字段
type SignupInput struct {
	Name     string
	Username string
	Email    string
	Password string
	Confirm  string
}

// NewUserService 构造 UserService
func NewUserService(gdb *gorm.DB) *UserService {
	return &UserService{db: gdb}
}

// Register 创建新用户，密码以 bcrypt 哈希保存
func (s *UserService) Register(input SignupInput) (*db.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)

	if username == "" {
		return nil, invalid("username", "username is required")
	}
	if input.Password == "" {
		return nil, invalid("password", "password is required")
	}
	if input.Password != input.Confirm {
		return nil, invalid("confirm", "passwords do not match")
	}

	var count int64
	if err := s.db.Model(&db.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	var emailPtr *string
	if email != "" {
		if err := s.db.Model(&db.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		if count > 0 {
			return nil, ErrEmailTaken
		}
		emailPtr = &email
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := db.User{
		Name:     strings.TrimSpace(input.Name),
		Username: username,
		Email:    emailPtr,
		Password: string(hashed),
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// Authenticate 校验用户名与密码
func (s *UserService) Authenticate(username, password string) (*db.User, error) {
	var user db.User
	if err := s.db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// Get 根据 ID 获取用户
func (s *UserService) Get(id uint) (*db.User, error) {
	var user db.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}
