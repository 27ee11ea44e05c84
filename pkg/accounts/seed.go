package accounts

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Seed is one entry of ACCOUNT_SEED_FILE (YAML, or JSON which YAML
// accepts). id is optional and generated when empty.
type Seed struct {
	ID               string `yaml:"id"`
	Domain           string `yaml:"domain"`
	MemberID         string `yaml:"member_id"`
	Status           string `yaml:"status"`
	ApplicationToken string `yaml:"application_token"`
}

// LoadSeed reads account seeds from path. An empty path yields no seeds.
func LoadSeed(path string) ([]Seed, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []Seed
	if err := yaml.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("yaml parse: %w", err)
	}
	return out, nil
}

func (s Seed) account(now time.Time) (Account, error) {
	domain := strings.ToLower(strings.TrimSpace(s.Domain))
	member := strings.TrimSpace(s.MemberID)
	if domain == "" || member == "" {
		return Account{}, errors.New("domain and member_id required")
	}
	id := uuid.New()
	if s.ID != "" {
		parsed, err := uuid.Parse(s.ID)
		if err != nil {
			return Account{}, fmt.Errorf("id: %w", err)
		}
		if parsed == uuid.Nil {
			return Account{}, errors.New("id: nil uuid")
		}
		id = parsed
	}
	status := strings.ToUpper(strings.TrimSpace(s.Status))
	if status == "" {
		status = "L"
	}
	return Account{
		ID: id, Domain: domain, MemberID: member, Status: status,
		ApplicationToken: s.ApplicationToken, CreatedAt: now, UpdatedAt: now,
	}, nil
}
