package telemetry_test

import (
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/toolchat/internal/telemetry"
)

// runConfigChild reports the startup config of a child process whose env holds
// only PATH, the helper marker and env. Empty AGT_* values would count as set.
func runConfigChild(t *testing.T, env map[string]string) string {
	t.Helper()
	cmd := exec.Command(os.Args[0], "-test.run=TestConfigChild")
	cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1", "PATH=" + os.Getenv("PATH")}
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	return string(out)
}

func TestStartupConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"baseline_off", nil, "observe=false persist=false"},
		{"observe_only", map[string]string{"AGT_OBSERVE_JSON": "1"}, "observe=true persist=false"},
		{"persist_implies_observe", map[string]string{"AGT_PERSIST_API_PAYLOADS": "1"}, "observe=true persist=true"},
		{"persist_with_observe_off", map[string]string{"AGT_PERSIST_API_PAYLOADS": "1", "AGT_OBSERVE_JSON": "0"}, "observe=false persist=true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := runConfigChild(t, tt.env)
			assert.True(t, slices.Contains(strings.Split(out, "\n"), tt.want), "want line %q in:\n%s", tt.want, out)
		})
	}
}

func TestConfigChild(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	fmt.Printf("observe=%v persist=%v\n", telemetry.ObserveEnabled(), telemetry.PersistPayloadsEnabled())
}
