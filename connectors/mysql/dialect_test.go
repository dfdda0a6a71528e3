package mysql

import (
	"strings"
	"testing"

	"github.com/kasuganosora/fedsql/connectors/sqlcommon"
	"github.com/kasuganosora/fedsql/pkg/connector/domain"
)

func TestBuildDSN(t *testing.T) {
	pt := true
	cfg := &sqlcommon.Config{
		Host:           "db1",
		Database:       "orders",
		User:           "svc",
		Password:       "secret",
		Charset:        "utf8mb4",
		ParseTime:      &pt,
		ConnectTimeout: 10,
	}
	dsn, err := Dialect{}.BuildDSN(cfg)
	if err != nil {
		t.Fatal(err)
	}
	want := "svc:secret@tcp(db1:3306)/orders?charset=utf8mb4&parseTime=true&timeout=10s"
	if dsn != want {
		t.Errorf("dsn = %q\nwant  %q", dsn, want)
	}

	cfg.Port = 3307
	dsn, _ = Dialect{}.BuildDSN(cfg)
	if !strings.Contains(dsn, "tcp(db1:3307)") {
		t.Errorf("explicit port ignored: %q", dsn)
	}

	if _, err := (Dialect{}).BuildDSN(&sqlcommon.Config{}); err == nil {
		t.Error("missing host should fail")
	}
}

func TestXAStatements(t *testing.T) {
	xid := domain.Xid{FormatID: 7, GlobalID: []byte{0xAB, 0xCD}, BranchID: []byte{0x01}}
	d := Dialect{}

	if got := d.RecoverQuery(); got != "XA RECOVER" {
		t.Errorf("recover query = %q", got)
	}
	if got := d.CommitStatement(xid, false); got != "XA COMMIT X'ABCD',X'01',7" {
		t.Errorf("commit = %q", got)
	}
	if got := d.CommitStatement(xid, true); got != "XA COMMIT X'ABCD',X'01',7 ONE PHASE" {
		t.Errorf("one-phase commit = %q", got)
	}
	if got := d.RollbackStatement(xid); got != "XA ROLLBACK X'ABCD',X'01',7" {
		t.Errorf("rollback = %q", got)
	}
}

func TestDialectIsXACapable(t *testing.T) {
	var d sqlcommon.Dialect = Dialect{}
	if _, ok := d.(sqlcommon.XADialect); !ok {
		t.Fatal("mysql dialect must implement XADialect")
	}
}

func TestCapabilities(t *testing.T) {
	caps := Dialect{}.Capabilities()
	if !caps.SupportsXATransactions() {
		t.Error("mysql should report XA transactions")
	}
	if !caps.SupportsRowOffset() || !caps.SupportsOuterJoins() {
		t.Error("mysql pushdown capabilities misreported")
	}
	if !caps.SupportsFunction("upper") || caps.SupportsFunction("soundex") {
		t.Error("function support misreported")
	}
}
