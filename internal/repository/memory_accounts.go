package repository

import (
    "context"
    "strings"
    "sync"
    "time"

    "github.com/iliyamo/cinema-seat-booking/internal/model"
    "github.com/iliyamo/cinema-seat-booking/internal/utils"
)

// MemoryUserRepo is the in-process counterpart of UserRepo.
type MemoryUserRepo struct {
    mu      sync.RWMutex
    users   map[uint64]model.User
    byName  map[string]uint64
    byEmail map[string]uint64
    nextID  uint64
}

func NewMemoryUserRepo() *MemoryUserRepo {
    return &MemoryUserRepo{
        users:   make(map[uint64]model.User),
        byName:  make(map[string]uint64),
        byEmail: make(map[string]uint64),
    }
}

func (r *MemoryUserRepo) Create(_ context.Context, username, email, password, role string, cost int) (uint64, error) {
    username = strings.TrimSpace(username)
    email = strings.ToLower(strings.TrimSpace(email))
    hash, err := utils.HashPassword(password, cost)
    if err != nil {
        return 0, err
    }
    r.mu.Lock()
    defer r.mu.Unlock()
    if _, ok := r.byName[username]; ok {
        return 0, ErrUsernameExists
    }
    if _, ok := r.byEmail[email]; ok {
        return 0, ErrEmailExists
    }
    r.nextID++
    u := model.User{
        ID:           r.nextID,
        Username:     username,
        Email:        email,
        PasswordHash: hash,
        Role:         role,
        CreatedAt:    time.Now().UTC(),
    }
    r.users[u.ID] = u
    r.byName[username] = u.ID
    r.byEmail[email] = u.ID
    return u.ID, nil
}

func (r *MemoryUserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
    r.mu.RLock()
    id, ok := r.byName[strings.TrimSpace(username)]
    r.mu.RUnlock()
    if !ok {
        return model.User{}, ErrUserNotFound
    }
    return r.GetByID(ctx, id)
}

func (r *MemoryUserRepo) GetByID(_ context.Context, id uint64) (model.User, error) {
    r.mu.RLock()
    defer r.mu.RUnlock()
    u, ok := r.users[id]
    if !ok {
        return model.User{}, ErrUserNotFound
    }
    return u, nil
}

type memoryToken struct {
    userID  uint64
    exp     time.Time
    revoked bool
}

// MemoryTokenRepo is the in-process counterpart of TokenRepo.
type MemoryTokenRepo struct {
    mu     sync.Mutex
    tokens map[string]*memoryToken
}

func NewMemoryTokenRepo() *MemoryTokenRepo {
    return &MemoryTokenRepo{tokens: make(map[string]*memoryToken)}
}

func (r *MemoryTokenRepo) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.tokens[tokenHash] = &memoryToken{userID: userID, exp: exp}
    return nil
}

func (r *MemoryTokenRepo) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    t, ok := r.tokens[tokenHash]
    if !ok || t.revoked || time.Now().UTC().After(t.exp) {
        return 0, ErrInvalidRefresh
    }
    return t.userID, nil
}

func (r *MemoryTokenRepo) RevokeByHash(_ context.Context, tokenHash string) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    if t, ok := r.tokens[tokenHash]; ok {
        t.revoked = true
    }
    return nil
}

func (r *MemoryTokenRepo) RevokeAllForUser(_ context.Context, userID uint64) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    for _, t := range r.tokens {
        if t.userID == userID {
            t.revoked = true
        }
    }
    return nil
}
