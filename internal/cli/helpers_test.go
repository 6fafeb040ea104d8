package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// connectionEnv lists every variable the resolver and source reader consult.
var connectionEnv = []string{
	"DB_URL", "DATABASE_URL",
	"PGHOST", "PGPORT", "PGUSER", "PGPASSWORD", "PGDATABASE", "PGSSLMODE",
	"AWS_REGION", "AZURE_TENANT_ID", "AZURE_CLIENT_ID", "AZURE_CLIENT_SECRET",
	envS3Endpoint, envS3UseSSL, envS3Region, envAWSAccess, envAWSSecret, envHTTPPort,
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range connectionEnv {
		t.Setenv(k, "")
	}
}

// run executes a fresh command tree and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const fundsCSV = "Run Fondo;Nombre Fondo;Rentabilidad (%)\n" +
	"8001;Fondo A;1.5\n" +
	"8002;Fondo B;-0.25\n" +
	"8003;Fondo Ñ;2\n"
