package engine

import (
	"fmt"
	"path"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Paths inside the engine instances.
const (
	containerDump    = "/tmp/dump.sql"
	containerExports = "/tmp/exports"
	containerImports = "/imports"
	containerScripts = "/scripts"
	containerCSV     = "/csv"
	containerCapture = "/tmp/harness-exec"

	// localMongoURI is how tools inside the document instance reach it.
	localMongoURI = "mongodb://localhost:27017"
)

// restoreCommand builds the restore command for a dump format. The
// password is passed through the environment, not the argv.
func restoreCommand(format DumpFormat, user, database string) []string {
	if format == DumpCustom {
		return []string{"pg_restore", "-v", "-U", user, "-d", database, containerDump}
	}
	return []string{"psql", "-v", "ON_ERROR_STOP=1", "-U", user, "-d", database, "-f", containerDump}
}

// exportTableCommand serializes each row of table with row_to_json into
// a newline-delimited file inside the instance.
func exportTableCommand(user, database, table, containerOut string) []string {
	copyStmt := fmt.Sprintf(`\copy (SELECT row_to_json(x) FROM public.%s AS x) TO '%s'`,
		quoteIdent(table), strings.ReplaceAll(containerOut, "'", "''"))
	return []string{"psql", "-v", "ON_ERROR_STOP=1", "-U", user, "-d", database, "-c", copyStmt}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func importCommand(database, collection, containerFile string) []string {
	return []string{
		"mongoimport", "--uri", localMongoURI, "--db", database,
		"--collection", collection, "--file", containerFile, "--drop",
	}
}

// scriptCommand feeds a script to the shell on stdin so its output
// matches an interactive session.
func scriptCommand(containerFile string) []string {
	return []string{"bash", "-c", "mongosh --quiet < " + shellquote.Join(containerFile)}
}

func exportCSVCommand(database, collection string, fields []string, containerOut string) []string {
	return []string{
		"mongoexport", "--uri", localMongoURI, "--db", database,
		"--collection", collection, "--type=csv",
		"--fields", strings.Join(fields, ","), "--out", containerOut,
	}
}

func containerPath(dir, hostPath string) string {
	return path.Join(dir, path.Base(strings.ReplaceAll(hostPath, `\`, "/")))
}
