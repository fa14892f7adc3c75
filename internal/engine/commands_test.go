package engine

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestRestoreCommand(t *testing.T) {
	c := qt.New(t)
	c.Assert(restoreCommand(DumpCustom, "postgres", "tp1_ind500"), qt.DeepEquals,
		[]string{"pg_restore", "-v", "-U", "postgres", "-d", "tp1_ind500", "/tmp/dump.sql"})
	c.Assert(restoreCommand(DumpPlain, "postgres", "tp1_ind500"), qt.DeepEquals,
		[]string{"psql", "-v", "ON_ERROR_STOP=1", "-U", "postgres", "-d", "tp1_ind500", "-f", "/tmp/dump.sql"})
}

func TestExportTableCommand(t *testing.T) {
	c := qt.New(t)
	cmd := exportTableCommand("postgres", "tp1_ind500", "tp1_ind500_orders", "/tmp/exports/orders.json")
	c.Assert(cmd[len(cmd)-1], qt.Equals,
		`\copy (SELECT row_to_json(x) FROM public."tp1_ind500_orders" AS x) TO '/tmp/exports/orders.json'`)
}

func TestImportCommand(t *testing.T) {
	c := qt.New(t)
	c.Assert(importCommand("tp2_ind500", "orders", "/imports/orders.json"), qt.DeepEquals, []string{
		"mongoimport", "--uri", "mongodb://localhost:27017", "--db", "tp2_ind500",
		"--collection", "orders", "--file", "/imports/orders.json", "--drop",
	})
}

func TestScriptCommand(t *testing.T) {
	c := qt.New(t)
	c.Assert(scriptCommand("/scripts/build-modeled.js"), qt.DeepEquals,
		[]string{"bash", "-c", "mongosh --quiet < /scripts/build-modeled.js"})
}

func TestExportCSVCommand(t *testing.T) {
	c := qt.New(t)
	cmd := exportCSVCommand("tp2_ind500", "__csv_q1", []string{"state", "total"}, "/csv/q1.csv")
	c.Assert(cmd, qt.DeepEquals, []string{
		"mongoexport", "--uri", "mongodb://localhost:27017", "--db", "tp2_ind500",
		"--collection", "__csv_q1", "--type=csv", "--fields", "state,total", "--out", "/csv/q1.csv",
	})
}

func TestContainerPath(t *testing.T) {
	c := qt.New(t)
	c.Assert(containerPath(containerImports, "/home/me/data/orders.json"), qt.Equals, "/imports/orders.json")
}

func TestExecResultDiagnostic(t *testing.T) {
	c := qt.New(t)
	r := ExecResult{ExitCode: 3, Stdout: "out\n", Stderr: "err\n"}
	c.Assert(r.Failed(), qt.IsTrue)
	c.Assert(r.Diagnostic(), qt.Equals, "exit code 3\nSTDOUT:\nout\nSTDERR:\nerr")
	c.Assert(ExecResult{}.Failed(), qt.IsFalse)
}
