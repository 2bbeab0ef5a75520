// ./internal/arch/arch_test.go
package arch

import (
	"bytes"
	"encoding/json"
	"io"
	"os/exec"
	"strings"
	"testing"
)

type pkg struct {
	ImportPath string
	Imports    []string
	Standard   bool
}

func TestImportBoundaries(t *testing.T) {
	cmd := exec.Command("go", "list", "-json", "./...")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		t.Fatalf("go list: %v", err)
	}
	dec := json.NewDecoder(&out)

	cliOnly := []string{
		"bqtools/internal/app", "bqtools/internal/appcore", "bqtools/internal/cli",
		"bqtools/internal/config", "bqtools/cmd/",
		"github.com/spf13/cobra", "github.com/spf13/viper",
	}
	bans := map[string][]string{
		"bqtools/internal/record":     append([]string{"bqtools/internal/container", "bqtools/internal/pipeline"}, cliOnly...),
		"bqtools/internal/container":  append([]string{"bqtools/internal/pipeline", "bqtools/internal/writers"}, cliOnly...),
		"bqtools/internal/pipeline":   append([]string{"bqtools/internal/writers", "bqtools/internal/sink"}, cliOnly...),
		"bqtools/internal/writers":    append([]string{"bqtools/internal/pipeline"}, cliOnly...),
		"bqtools/internal/sink":       append([]string{"bqtools/internal/pipeline"}, cliOnly...),
		"bqtools/internal/match":      append([]string{"bqtools/internal/container", "bqtools/internal/writers"}, cliOnly...),
		"bqtools/internal/pipeserver": cliOnly,
		"bqtools/internal/app":        {"bqtools/internal/cli", "github.com/spf13/cobra", "github.com/spf13/viper"},
	}

	var violations []string
	for {
		var p pkg
		if err := dec.Decode(&p); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !strings.HasPrefix(p.ImportPath, "bqtools/") {
			continue
		}
		imp := p.ImportPath
		for prefix, forbidden := range bans {
			if imp != prefix && !strings.HasPrefix(imp, prefix+"/") {
				continue
			}
			for _, dep := range p.Imports {
				for _, ban := range forbidden {
					if strings.HasPrefix(dep, ban) {
						violations = append(violations, imp+" → "+dep)
					}
				}
			}
		}
	}

	if len(violations) > 0 {
		t.Fatalf("import boundary violations:\n  %s", strings.Join(violations, "\n  "))
	}
}
