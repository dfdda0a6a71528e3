package sqlcommon

import "testing"

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxOpenConns != 25 || cfg.MaxIdleConns != 5 {
		t.Errorf("pool defaults wrong: %+v", cfg)
	}
	if cfg.ConnectTimeout != 10 {
		t.Errorf("ConnectTimeout = %d, want 10", cfg.ConnectTimeout)
	}
	if cfg.Charset != "utf8mb4" {
		t.Errorf("Charset = %q", cfg.Charset)
	}
	if cfg.ParseTime == nil || !*cfg.ParseTime {
		t.Error("ParseTime should default to true")
	}
	if cfg.SSLMode != "disable" {
		t.Errorf("SSLMode = %q", cfg.SSLMode)
	}
}

func TestParseConfigFromOptions(t *testing.T) {
	cfg, err := ParseConfig(map[string]interface{}{
		"host":       "db.example.com",
		"port":       5432,
		"database":   "orders",
		"user":       "svc",
		"password":   "secret",
		"ssl_mode":   "require",
		"parse_time": false,
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Host != "db.example.com" || cfg.Port != 5432 || cfg.Database != "orders" {
		t.Errorf("connection fields misparsed: %+v", cfg)
	}
	if cfg.SSLMode != "require" {
		t.Errorf("SSLMode = %q", cfg.SSLMode)
	}
	if cfg.ParseTime == nil || *cfg.ParseTime {
		t.Error("explicit parse_time false must survive defaulting")
	}
}

func TestParseConfigRejectsWrongTypes(t *testing.T) {
	if _, err := ParseConfig(map[string]interface{}{"port": "not-a-number"}); err == nil {
		t.Fatal("string port should fail to parse")
	}
}
