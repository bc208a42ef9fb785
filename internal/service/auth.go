package service

import (
	"context"
	"fmt"
	"time"

	v1 "fedisync/api/v1"
	"fedisync/internal/federation"
	"fedisync/internal/model"
	"fedisync/internal/repository"
	"fedisync/pkg/log"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const loginCodeTTL = 10 * time.Minute

// privateMessenger is the delivery channel for one-time codes. Only the
// full-API dialect client implements it.
type privateMessenger interface {
	ResolvePersonID(ctx context.Context, apID string) (int64, error)
	CreatePrivateMessage(ctx context.Context, recipientID int64, content string) error
}

type AuthService interface {
	// RequestLoginCode verifies the account is an administrator of its
	// instance and delivers a one-time code by direct message from the bot.
	RequestLoginCode(ctx context.Context, username, host string) error
	// VerifyLoginCode exchanges a valid code for a session token.
	VerifyLoginCode(ctx context.Context, username, host, code string) (string, error)
}

func NewAuthService(
	service *Service,
	conf *viper.Viper,
	rdb *redis.Client,
	clients federation.ClientProvider,
	instanceRepo repository.InstanceRepository,
	userRepo repository.UserRepository,
	logger *log.Logger,
) AuthService {
	return &authService{
		Service:      service,
		conf:         conf,
		rdb:          rdb,
		clients:      clients,
		instanceRepo: instanceRepo,
		userRepo:     userRepo,
		logger:       logger,
	}
}

type authService struct {
	*Service
	conf         *viper.Viper
	rdb          *redis.Client
	clients      federation.ClientProvider
	instanceRepo repository.InstanceRepository
	userRepo     repository.UserRepository
	logger       *log.Logger
}

func loginCodeKey(username, host string) string {
	return fmt.Sprintf("login_code:%s@%s", username, host)
}

func (s *authService) RequestLoginCode(ctx context.Context, username, host string) error {
	instance, err := s.instanceRepo.GetByHost(ctx, host)
	if err != nil {
		return err
	}
	if instance == nil {
		return v1.ErrInstanceNotFound
	}

	client, err := s.clients.Get(ctx, instance)
	if err != nil {
		return err
	}
	user, err := client.GetUser(ctx, username)
	if err != nil {
		return err
	}
	if !user.IsAdmin || user.IsBanned || user.IsBot {
		return v1.ErrNotAnAdmin
	}

	code, err := s.sid.GenString()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, loginCodeKey(username, host), hash, loginCodeTTL).Err(); err != nil {
		return err
	}

	return s.sendCode(ctx, username, host, code)
}

// sendCode delivers the code as a private message from the configured bot
// instance, so possession of the account proves control of it.
func (s *authService) sendCode(ctx context.Context, username, host, code string) error {
	botHost := s.conf.GetString("auth.bot_instance")
	bot, err := s.instanceRepo.GetByHost(ctx, botHost)
	if err != nil {
		return err
	}
	if bot == nil || !bot.HasCredentials() {
		return v1.ErrMissingCredentials
	}
	client, err := s.clients.Get(ctx, bot)
	if err != nil {
		return err
	}
	messenger, ok := client.(privateMessenger)
	if !ok {
		return fmt.Errorf("bot instance %s cannot send private messages", botHost)
	}

	personID, err := messenger.ResolvePersonID(ctx, fmt.Sprintf("https://%s/u/%s", host, username))
	if err != nil {
		return err
	}
	message := fmt.Sprintf("Your login code is `%s`. It expires in %d minutes.", code, int(loginCodeTTL.Minutes()))
	if err := messenger.CreatePrivateMessage(ctx, personID, message); err != nil {
		return err
	}
	s.logger.WithContext(ctx).Info("login code sent",
		zap.String("username", username), zap.String("host", host))
	return nil
}

func (s *authService) VerifyLoginCode(ctx context.Context, username, host, code string) (string, error) {
	key := loginCodeKey(username, host)
	hash, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", v1.ErrInvalidLoginCode
		}
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) != nil {
		return "", v1.ErrInvalidLoginCode
	}
	// single use
	s.rdb.Del(ctx, key)

	if err := s.userRepo.Upsert(ctx, &model.User{Username: username, Host: host}); err != nil {
		return "", err
	}

	token, err := s.jwt.GenToken(username, host, time.Now().Add(24*time.Hour))
	if err != nil {
		return "", err
	}
	return token, nil
}
