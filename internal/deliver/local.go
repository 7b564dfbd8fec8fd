package deliver

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Local places documents in the download directory.
type Local struct {
	dir string
}

// NewLocal builds a local deliverer targeting dir.
func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

// Name implements Deliverer.
func (l *Local) Name() string { return "local" }

// Deliver implements Deliverer. A document already inside the download
// directory stays where it is.
func (l *Local) Deliver(ctx context.Context, path string) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	receipt := Receipt{ID: uuid.NewString()}

	target := filepath.Join(l.dir, filepath.Base(path))
	if target == path {
		receipt.Location = path
		return receipt, nil
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return Receipt{}, fmt.Errorf("%w: create download dir: %w", ErrDelivery, err)
	}
	if err := copyFile(path, target); err != nil {
		return Receipt{}, fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	if err := os.Remove(path); err != nil {
		return Receipt{}, fmt.Errorf("%w: remove staged copy: %w", ErrDelivery, err)
	}

	receipt.Location = target
	return receipt, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return out.Sync()
}
