package validate

import (
	"testing"

	perr "docmend/internal/platform/errors"
)

type opts struct {
	BatchSize  int    `flag:"batch-size" validate:"min=1,max=500"`
	Table      string `env:"THRESHOLDS" validate:"oneof=primary legacy"`
	Collection string `validate:"required,collection"`
}

func TestStruct_OK(t *testing.T) {
	if err := Struct(opts{BatchSize: 500, Table: "legacy", Collection: "captures"}); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
}

func TestStruct_FieldNamesAndMessages(t *testing.T) {
	cases := []struct {
		name  string
		in    opts
		field string
		msg   string
	}{
		{"min uses flag name", opts{BatchSize: 0, Table: "primary", Collection: "c"}, "batch-size", "batch-size must be at least 1"},
		{"max uses flag name", opts{BatchSize: 501, Table: "primary", Collection: "c"}, "batch-size", "batch-size must be at most 500"},
		{"env tag name", opts{BatchSize: 1, Table: "nope", Collection: "c"}, "THRESHOLDS", ""},
		{"collection slash", opts{BatchSize: 1, Table: "primary", Collection: "a/b"}, "Collection", "Collection is not a valid collection name"},
		{"collection reserved", opts{BatchSize: 1, Table: "primary", Collection: "__x"}, "Collection", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Struct(tc.in)
			if err == nil {
				t.Fatalf("expected error")
			}
			if perr.CodeOf(err) != perr.ErrorCodeValidation {
				t.Fatalf("code = %v", perr.CodeOf(err))
			}
			e, _ := perr.As(err)
			if e.Field() != tc.field {
				t.Fatalf("field = %q, want %q", e.Field(), tc.field)
			}
			if tc.msg != "" && err.Error() != tc.msg {
				t.Fatalf("msg = %q, want %q", err.Error(), tc.msg)
			}
		})
	}
}

func TestStruct_NonStructIsInternal(t *testing.T) {
	err := Struct(42)
	if err == nil || perr.CodeOf(err) != perr.ErrorCodeUnknown {
		t.Fatalf("want unknown-code error, got %v", err)
	}
}

func TestFieldAndMessage_Nil(t *testing.T) {
	if f, m := FieldAndMessage(nil); f != "" || m != "" {
		t.Fatalf("got %q %q", f, m)
	}
}

func TestIdent(t *testing.T) {
	for _, s := range []string{"repair_runs", "_x", "Runs2"} {
		if !Ident(s) {
			t.Fatalf("%q should be a valid identifier", s)
		}
	}
	for _, s := range []string{"", "2runs", "repair-runs", "runs; DROP TABLE x", "a.b"} {
		if Ident(s) {
			t.Fatalf("%q should be rejected", s)
		}
	}

	type ledgerOpts struct {
		Table string `env:"LEDGER_TABLE" validate:"ident"`
	}
	err := Struct(ledgerOpts{Table: "bad name"})
	if err == nil || err.Error() != "LEDGER_TABLE must be a plain sql identifier" {
		t.Fatalf("err = %v", err)
	}
}

func TestCollection(t *testing.T) {
	for _, s := range []string{"captures", "users", "a b", "x.y"} {
		if !Collection(s) {
			t.Fatalf("%q should be a valid collection", s)
		}
	}
	for _, s := range []string{"", "a/b", "__meta", ".", ".."} {
		if Collection(s) {
			t.Fatalf("%q should be rejected", s)
		}
	}
}
