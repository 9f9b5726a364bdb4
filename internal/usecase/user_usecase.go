package usecase

import (
	"context"
	"errors"

	"github.com/NasaVasa/nestwatch/internal/domain"
)

type UserUsecase struct {
	users domain.UserRepository
}

func NewUserUsecase(users domain.UserRepository) *UserUsecase {
	return &UserUsecase{users: users}
}

// LinkChat returns the user bound to chatID, registering one on first contact.
func (u *UserUsecase) LinkChat(ctx context.Context, chatID int64, displayName string) (*domain.User, error) {
	user, err := u.users.GetByChatID(ctx, chatID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	newUser := &domain.User{
		TelegramChatID: chatID,
		DisplayName:    displayName,
	}
	if err := u.users.Create(ctx, newUser); err != nil {
		return nil, err
	}
	return newUser, nil
}

func (u *UserUsecase) SetMuted(ctx context.Context, chatID int64, muted bool) error {
	user, err := u.users.GetByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrUserNotRegistered
		}
		return err
	}
	return u.users.SetMuted(ctx, user.ID, muted)
}
