package persistence

import (
	"context"

	"github.com/Ramsey-B/enygma/pkg/errors"
	"github.com/Ramsey-B/enygma/pkg/utils"
)

// KeyPrefix prefixes every stored configuration name.
const KeyPrefix = "cipher_state_"

// Store keeps named configurations.
//
// Load reports false when nothing usable is stored under the name, including
// when the stored payload is corrupt. Corrupt payloads are logged by the store.
type Store interface {
	Save(ctx context.Context, cfg SavedConfiguration) error
	Load(ctx context.Context, name string) (SavedConfiguration, bool)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// ValidateName rejects names that cannot be used as a storage key.
func ValidateName(name string) error {
	if err := utils.ValidateValue(name, "required,max=128,excludesall=/\\"); err != nil {
		return errors.NewChainErrorf(errors.CodeInvalid, "invalid configuration name '%s'", name).AddField("name")
	}
	return nil
}
