package cli

import (
	"github.com/spf13/cobra"

	"github.com/ffmm-chile/ffmm/internal/config"
	"github.com/ffmm-chile/ffmm/internal/db"
	"github.com/ffmm-chile/ffmm/pkg/ffmm"
)

var sslModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

// connectionFlags holds the connection flag values shared by every command
// that talks to PostgreSQL.
type connectionFlags struct {
	connection     string
	host           string
	port           int
	username       string
	database       string
	sslMode        string
	authMethod     string
	awsRegion      string
	googleInstance string
	azureTenantID  string
	azureClientID  string
}

func addConnectionFlags(cmd *cobra.Command, f *connectionFlags) {
	flags := cmd.Flags()
	flags.StringVar(&f.connection, "connection", "",
		"PostgreSQL connection string (URI or ADO.NET).\n"+
			"Mutually exclusive with --host, --port, --username, --database.\n"+
			"Alternative: $DB_URL or $DATABASE_URL. SQLAlchemy-style schemes\n"+
			"(postgresql+psycopg2://) are accepted.")
	flags.StringVarP(&f.host, "host", "h", "", "PostgreSQL host (default: $PGHOST or localhost)")
	flags.IntVarP(&f.port, "port", "p", 0, "PostgreSQL port (default: $PGPORT or 5432)")
	flags.StringVarP(&f.username, "username", "U", "", "PostgreSQL user (default: $PGUSER)")
	flags.StringVarP(&f.database, "database", "d", "", "Database name (default: $PGDATABASE or postgres)")
	flags.StringVar(&f.sslMode, "sslmode", "", "SSL mode: disable|allow|prefer|require|verify-ca|verify-full (default: $PGSSLMODE or prefer)")
	flags.StringVar(&f.authMethod, "auth", "", "Authentication: standard|aws|google|azure (default: standard)")
	flags.StringVar(&f.awsRegion, "aws-region", "", "AWS region for RDS IAM auth (default: $AWS_REGION)")
	flags.StringVar(&f.googleInstance, "google-instance", "", "Cloud SQL instance (project:region:instance) for Google IAM auth")
	flags.StringVar(&f.azureTenantID, "azure-tenant-id", "", "Entra ID tenant (default: $AZURE_TENANT_ID)")
	flags.StringVar(&f.azureClientID, "azure-client-id", "", "Entra ID client (default: $AZURE_CLIENT_ID)")

	_ = cmd.RegisterFlagCompletionFunc("sslmode", cobra.FixedCompletions(sslModes, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("auth", cobra.FixedCompletions(
		[]string{"standard", "aws", "google", "azure"}, cobra.ShellCompDirectiveNoFileComp))
}

// resolve applies the connection precedence: flags, then environment, then
// the project file.
func (f *connectionFlags) resolve(projectCfg *config.ProjectConfig) (*ffmm.ConnectionConfig, error) {
	return db.ResolveConnectionParams(
		f.connection,
		&db.GranularConnFlags{
			Host:     f.host,
			Port:     f.port,
			Username: f.username,
			Database: f.database,
			SSLMode:  f.sslMode,
		},
		&db.CloudFlags{
			AuthMethod:     f.authMethod,
			AWSRegion:      f.awsRegion,
			GoogleInstance: f.googleInstance,
			AzureTenantID:  f.azureTenantID,
			AzureClientID:  f.azureClientID,
		},
		db.LoadFromEnvironment(),
		projectCfg,
	)
}

func logConnectionVerbose(logger ffmm.Logger, cfg *ffmm.ConnectionConfig) {
	logger.Verbose("Connection resolved: %s", db.RedactConnectionString(db.BuildConnectionString(cfg)))
	logger.Verbose("Auth method: %s", cfg.AuthMethod)
}
