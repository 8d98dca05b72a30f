package provision

import (
	"bytes"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/sinch/sinch-quickstart/internal/constants"
	"github.com/sinch/sinch-quickstart/internal/fileutils"
	"github.com/sinch/sinch-quickstart/internal/payload"
)

// Receipt records a provisioning in the destination folder.
// It never carries the application secret.
type Receipt struct {
	ID             string    `toml:"id"`
	Sample         string    `toml:"sample"`
	Project        string    `toml:"project"`
	Archive        string    `toml:"archive"`
	Environment    string    `toml:"environment"`
	ApplicationKey string    `toml:"application_key"`
	CreatedAt      time.Time `toml:"created_at"`
}

// NewReceipt returns a receipt for p, stamped with now.
func NewReceipt(p payload.Payload, now time.Time) (Receipt, error) {
	project, err := p.ProjectName()
	if err != nil {
		return Receipt{}, err
	}

	return Receipt{
		ID:             uuid.NewString(),
		Sample:         p.Sample,
		Project:        project,
		Archive:        p.Archive,
		Environment:    p.Credentials.Environment,
		ApplicationKey: p.Credentials.ApplicationKey,
		CreatedAt:      now.UTC().Truncate(time.Second),
	}, nil
}

// WriteReceipt writes r as TOML in dir.
func WriteReceipt(dir string, r Receipt) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(r); err != nil {
		return fmt.Errorf("could not encode receipt: %v", err)
	}

	p := filepath.Join(dir, constants.ReceiptFile)
	if err := fileutils.AtomicWrite(p, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("could not write receipt: %v", err)
	}
	slog.Debug("Wrote provisioning receipt", "file", p, "id", r.ID)
	return nil
}

// ReadReceipt reads the receipt left in dir.
func ReadReceipt(dir string) (r Receipt, err error) {
	p := filepath.Join(dir, constants.ReceiptFile)
	if _, err := toml.DecodeFile(p, &r); err != nil {
		return Receipt{}, fmt.Errorf("could not read receipt %s: %w", p, err)
	}
	return r, nil
}
