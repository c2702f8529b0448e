package toolchains

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/Norgate-AV/mint/internal/codes"
	"github.com/Norgate-AV/mint/internal/runner"
	"github.com/Norgate-AV/mint/internal/toolchain"
	"github.com/Norgate-AV/mint/internal/utils"
)

// rubyNative syntax-checks every source and packages them as a tarball
var rubyNative = unitRecipe{
	what:     "Ruby",
	patterns: []string{"*.rb"},
	suffix:   ".tar.gz",
	compile: func(ctx context.Context, u *unit) error {
		if _, err := u.Require("ruby"); err != nil {
			return err
		}

		for _, src := range u.sources {
			if err := u.checkSyntax(ctx, src); err != nil {
				return err
			}
		}

		if u.Runner.DryRun() {
			return nil
		}

		data, err := packSources(u.Root, u.sources)
		if err != nil {
			return codes.Wrap(codes.CompileFailed, err, "failed to package Ruby sources")
		}

		return utils.WriteFileAtomic(u.output, data)
	},
}

func (u *unit) checkSyntax(ctx context.Context, src string) error {
	cmd := runner.Command{Dir: u.Root, Name: "ruby", Args: []string{"-c", src}}
	if err := u.Runner.Run(ctx, cmd); err != nil {
		return toolchain.CommandFailure(codes.CompileFailed, err, src, "Ruby syntax check failed")
	}

	return nil
}

// packSources writes a gzip-compressed tarball of files, named relative to root
func packSources(root string, files []string) ([]byte, error) {
	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, file := range files {
		if err := addFile(tw, root, file); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}

	if err := gz.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func addFile(tw *tar.Writer, root, file string) error {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return err
	}

	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = filepath.ToSlash(rel)

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("%s: %w", rel, err)
	}

	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("%s: %w", rel, err)
	}

	return nil
}
