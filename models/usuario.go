package models

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
	"bitbucket.org/mmdatafocus/seguros_backend/utils"
)

type RolUsuario string

const (
	RolUsuarioAdmin    RolUsuario = "admin"
	RolUsuarioOperador RolUsuario = "operador"
	RolUsuarioConsulta RolUsuario = "consulta"
)

type Usuario struct {
	ID        int        `gorm:"primary_key" json:"id"`
	Username  string     `gorm:"size:100;not null;unique" json:"username" binding:"required"`
	Nombre    string     `gorm:"size:255;not null" json:"nombre" binding:"required"`
	Email     string     `gorm:"size:255;unique" json:"email"`
	Password  string     `gorm:"size:255;not null" json:"password"`
	Rol       RolUsuario `gorm:"type:enum('admin','operador','consulta');default:consulta" json:"rol"`
	Activo    *bool      `gorm:"not null;default:true" json:"activo"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type LoginInfo struct {
	Token  string     `json:"token"`
	Nombre string     `json:"nombre"`
	Rol    RolUsuario `json:"rol"`
}

func (u *Usuario) PrepareGive() {
	u.Password = ""
}

func Login(ctx context.Context, username string, password string) (*LoginInfo, error) {

	db := config.GetDB()
	user := Usuario{}

	// get user info, redis first
	exists, err := config.GetRedisObject("Usuario:"+username, &user)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := db.WithContext(ctx).Model(&Usuario{}).
			Where("username = ?", username).Take(&user).Error; err != nil {
			return nil, errors.New("invalid username or password")
		}
		// best effort; login works without the cache
		_ = config.SetRedisObject("Usuario:"+username, user, 10*time.Minute)
	}

	// check login credentials
	err = utils.ComparePassword(user.Password, password)
	if err != nil && err == bcrypt.ErrMismatchedHashAndPassword {
		return nil, errors.New("invalid username or password")
	}

	if user.Activo == nil || !*user.Activo {
		return nil, errors.New("user is disabled")
	}

	token, err := utils.JwtGenerate(user.ID, user.Username, string(user.Rol))
	if err != nil {
		return nil, err
	}

	return &LoginInfo{
		Token:  token,
		Nombre: user.Nombre,
		Rol:    user.Rol,
	}, nil
}
