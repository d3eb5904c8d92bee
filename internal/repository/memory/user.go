package memory

import (
	"context"
	"fmt"

	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
)

type userRepository struct {
	s *Store
}

func (r *userRepository) FindByID(_ context.Context, id string) (*entity.User, error) {
	var out *entity.User
	err := r.s.view(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return entity.ErrUserNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *userRepository) Create(_ context.Context, u *entity.User) error {
	return r.s.view(func(st *state) error {
		for _, existing := range st.users {
			if existing.Email == u.Email {
				return fmt.Errorf("%w: email already registered", entity.ErrConflict)
			}
		}
		st.users[u.ID] = *u
		return nil
	})
}
