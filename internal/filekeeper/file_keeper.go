package filekeeper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/drstein77/storefront/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	cartsDir     = "carts"
	productsFile = "products.json"
)

type Log interface {
	Info(string, ...zap.Field)
	Error(string, ...zap.Field)
}

// FileKeeper stores carts and the products snapshot as JSON files under a directory.
type FileKeeper struct {
	dir string
	log Log
}

type snapshot struct {
	FetchedAt time.Time        `json:"fetched_at"`
	Products  []models.Product `json:"products"`
}

// NewFileKeeper prepares dir and returns a keeper writing into it.
func NewFileKeeper(dir string, log Log) (*FileKeeper, error) {
	if err := os.MkdirAll(filepath.Join(dir, cartsDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	log.Info("File keeper ready", zap.String("dir", dir))
	return &FileKeeper{dir: dir, log: log}, nil
}

func (k *FileKeeper) SaveCart(_ context.Context, cart models.CartView) error {
	path, err := k.cartPath(cart.ID)
	if err != nil {
		return err
	}
	return writeJSON(path, cart)
}

// LoadCart reads a cart. A missing file is reported with found == false.
func (k *FileKeeper) LoadCart(_ context.Context, id string) (models.CartView, bool, error) {
	var cart models.CartView

	path, err := k.cartPath(id)
	if err != nil {
		return cart, false, err
	}
	found, err := readJSON(path, &cart)
	return cart, found, err
}

func (k *FileKeeper) DeleteCart(_ context.Context, id string) error {
	path, err := k.cartPath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

func (k *FileKeeper) SaveProducts(_ context.Context, products []models.Product, fetchedAt time.Time) error {
	return writeJSON(filepath.Join(k.dir, productsFile), snapshot{FetchedAt: fetchedAt, Products: products})
}

func (k *FileKeeper) LoadProducts(context.Context) ([]models.Product, time.Time, error) {
	var snap snapshot
	if _, err := readJSON(filepath.Join(k.dir, productsFile), &snap); err != nil {
		return nil, time.Time{}, err
	}
	return snap.Products, snap.FetchedAt, nil
}

// Ping checks that the data directory is still there.
func (k *FileKeeper) Ping(context.Context) bool {
	info, err := os.Stat(k.dir)
	if err != nil {
		k.log.Error("Data dir is unavailable", zap.Error(err))
		return false
	}
	return info.IsDir()
}

func (k *FileKeeper) Close() bool {
	k.log.Info("File keeper closed")
	return true
}

// cartPath only accepts uuid session ids so an id can never address a file outside the carts dir.
func (k *FileKeeper) cartPath(id string) (string, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("invalid cart id %q: %w", id, err)
	}
	return filepath.Join(k.dir, cartsDir, uid.String()+".json"), nil
}

// writeJSON replaces path atomically: the data goes to a temp file which is then renamed.
func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}
