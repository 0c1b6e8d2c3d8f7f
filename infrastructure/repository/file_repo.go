package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"rewardsfarmer-go/domain/account"
)

// ErrAccountFileCreated is returned when the accounts file was missing and a template was written.
var ErrAccountFileCreated = errors.New("accounts file created from template")

// FileAccountRepository implements account.Repository over a YAML or JSON file
// holding a list of {username, password, proxy} entries.
type FileAccountRepository struct {
	path   string
	logger *slog.Logger
}

// NewFileAccountRepository creates a file-based account repository.
func NewFileAccountRepository(path string, logger *slog.Logger) *FileAccountRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileAccountRepository{path: path, logger: logger}
}

// FindAll reads every account from the file. A missing file is replaced by a
// template and ErrAccountFileCreated is returned so the operator can fill it in.
func (r *FileAccountRepository) FindAll(ctx context.Context) ([]account.Account, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		if werr := r.writeTemplate(); werr != nil {
			return nil, werr
		}
		r.logger.Warn("Accounts file not found, a template was created", "path", r.path)
		return nil, fmt.Errorf("%w: edit %s with your credentials", ErrAccountFileCreated, r.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts file %s: %w", r.path, err)
	}

	// YAML is a superset of JSON, so both formats decode here.
	var accounts []account.Account
	if err := yaml.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("failed to parse accounts file %s: %w", r.path, err)
	}

	return accounts, nil
}

func (r *FileAccountRepository) writeTemplate() error {
	template := []account.Account{{Username: "Your Email", Password: "Your Password"}}
	data, err := yaml.Marshal(template)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(r.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create accounts directory: %w", err)
		}
	}
	if err := os.WriteFile(r.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write accounts template: %w", err)
	}
	return nil
}

// Ensure FileAccountRepository implements account.Repository
var _ account.Repository = (*FileAccountRepository)(nil)
