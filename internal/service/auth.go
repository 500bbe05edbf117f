package service

import (
	"fmt"
	"time"

	"github.com/taskMaster/backend/internal/model"
	jwtpkg "github.com/taskMaster/backend/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	db        *gorm.DB
	jwtSecret string
	jwtExpire int
}

func NewAuthService(db *gorm.DB, jwtSecret string, jwtExpire int) *AuthService {
	return &AuthService{db: db, jwtSecret: jwtSecret, jwtExpire: jwtExpire}
}

func (s *AuthService) Register(email, password, name string) (*model.User, string, time.Time, error) {
	var count int64
	s.db.Model(&model.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return nil, "", time.Time{}, fmt.Errorf("40901:该邮箱已注册")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", time.Time{}, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Status:       1,
	}
	if err := s.db.Create(user).Error; err != nil {
		return nil, "", time.Time{}, fmt.Errorf("create user: %w", err)
	}

	token, expireAt, err := jwtpkg.GenerateToken(s.jwtSecret, user.ID, user.Email, user.IsAdmin, s.jwtExpire)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, expireAt, nil
}

func (s *AuthService) Login(email, password string) (*model.User, string, time.Time, error) {
	var user model.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, "", time.Time{}, fmt.Errorf("40105:邮箱或密码错误")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", time.Time{}, fmt.Errorf("40105:邮箱或密码错误")
	}
	if user.Status == 0 {
		return nil, "", time.Time{}, fmt.Errorf("40104:用户已禁用")
	}

	now := time.Now()
	user.LastLoginAt = &now
	s.db.Model(&user).Update("last_login_at", now)

	token, expireAt, err := jwtpkg.GenerateToken(s.jwtSecret, user.ID, user.Email, user.IsAdmin, s.jwtExpire)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return &user, token, expireAt, nil
}

func (s *AuthService) SearchUsers(keyword string, excludeProjectID *uint, limit int) ([]model.User, error) {
	query := s.db.Model(&model.User{}).Where("status = 1")
	if keyword != "" {
		query = query.Where("name LIKE ? OR email LIKE ?", "%"+keyword+"%", "%"+keyword+"%")
	}
	if excludeProjectID != nil {
		query = query.Where("id NOT IN (SELECT user_id FROM project_members WHERE project_id = ?)", *excludeProjectID)
	}

	var users []model.User
	if err := query.Limit(limit).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
