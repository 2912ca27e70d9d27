package normalize

import (
	"math/rand"
	"testing"
	"time"

	"docmend/internal/core/classify"
	"docmend/internal/core/value"
)

func doc(id string, f value.Fields) value.Document { return value.Document{ID: id, Fields: f} }

func ts(t *testing.T, sec int64) value.Value {
	t.Helper()
	x, err := value.NewTimestamp(sec, 0)
	if err != nil {
		t.Fatal(err)
	}
	return value.TimestampOf(x)
}

func TestNormalize_CaptureMixedTimestamps(t *testing.T) {
	n := New()
	in := doc("a", value.Fields{
		"timestamp":   value.Number(1.7e12),
		"created_at":  value.String("2023-11-14T22:13:20Z"),
		"updated_at":  value.Number(1.7e9),
		"captured_at": value.String("garbage"),
		"image_path":  value.String("  img/1.png "),
		"user_id":     value.String(""),
		"other":       value.Number(42),
	})
	res, err := n.Normalize(KindCapture, in)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := ts(t, 1_700_000_000)
	for _, f := range []string{"timestamp", "created_at", "updated_at"} {
		if !res.Normalized[f].Equal(want) {
			t.Fatalf("%s = %v, want %v", f, res.Normalized[f], want)
		}
	}
	if res.Normalized["captured_at"].Kind() != value.KindServerTime {
		t.Fatalf("captured_at should fall back to server time, got %v", res.Normalized["captured_at"].Kind())
	}
	if len(res.Fallbacks) != 1 || res.Fallbacks[0] != "captured_at" {
		t.Fatalf("fallbacks = %v", res.Fallbacks)
	}
	if s, _ := res.Normalized["image_path"].AsString(); s != "img/1.png" {
		t.Fatalf("image_path = %q", s)
	}
	if _, ok := res.Patch["user_id"]; ok {
		t.Fatal("falsy user_id must be left alone")
	}
	if _, ok := res.Patch["other"]; ok {
		t.Fatal("fields without a rule must not be patched")
	}
	if !res.Changed || len(res.Patch) != 5 {
		t.Fatalf("patch = %v", res.Patch.Keys())
	}
}

func TestNormalize_MissingFieldsUntouched(t *testing.T) {
	res, err := New().Normalize(KindCapture, doc("a", value.Fields{"note": value.String("x")}))
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed || len(res.Normalized) != 1 {
		t.Fatalf("absent fields must not be added: %v", res.Normalized.Keys())
	}
}

func TestNormalize_PredictionText(t *testing.T) {
	n := New()
	cases := []struct {
		name string
		in   value.Value
		want string
	}{
		{"trim", value.String("  hello  "), "hello"},
		{"blank becomes default", value.String("   "), "Unknown"},
		{"null becomes default", value.Null(), "Unknown"},
		{"false becomes default", value.Bool(false), "Unknown"},
		{"number coerces", value.Number(7), "7"},
		{"fraction coerces", value.Number(1.5), "1.5"},
		{"true coerces", value.Bool(true), "true"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := n.Normalize(KindPrediction, doc("p", value.Fields{"variety": tc.in}))
			if err != nil {
				t.Fatal(err)
			}
			if s, _ := res.Normalized["variety"].AsString(); s != tc.want {
				t.Fatalf("variety = %q, want %q", s, tc.want)
			}
		})
	}
}

func TestNormalize_Ratio(t *testing.T) {
	cases := []struct {
		in      value.Value
		want    float64
		changed bool
	}{
		{value.Number(150), 1, true},
		{value.Number(-5), 0, true},
		{value.Number(0.42), 0.42, false},
		{value.Number(42), 0.42, true},
		{value.Number(1), 1, false},
		{value.Number(0.4200001), 0.4200001, false},
		{value.String("0.5"), 0.5, false},
		{value.String(" 50 "), 0.5, true},
		{value.String("abc"), 0, true},
		{value.Null(), 0, false},
		{value.Bool(false), 0, false},
		{value.Bool(true), 0, true},
		{value.Map(value.Fields{"v": value.Int(1)}), 0, true},
		{value.List(nil), 0, true},
		{value.ServerTime(), 0, true},
	}
	for _, tc := range cases {
		got, changed := Ratio(tc.in)
		if got != tc.want || changed != tc.changed {
			t.Fatalf("Ratio(%v) = %v,%v want %v,%v", tc.in, got, changed, tc.want, tc.changed)
		}
	}
}

func TestNormalize_ContainersCoerceToDefaults(t *testing.T) {
	in := doc("p", value.Fields{
		"accuracy":    value.Map(value.Fields{"v": value.Int(1)}),
		"description": value.List(nil),
		"variety":     value.Map(value.Fields{}),
	})
	res, err := New().Normalize(KindPrediction, in)
	if err != nil {
		t.Fatalf("containers must not fail the document: %v", err)
	}
	if n, _ := res.Normalized["accuracy"].AsNumber(); res.Normalized["accuracy"].Kind() != value.KindNumber || n != 0 {
		t.Fatalf("accuracy = %v", res.Normalized["accuracy"])
	}
	if s, ok := res.Normalized["description"].AsString(); !ok || s != "" {
		t.Fatalf("description = %v", res.Normalized["description"])
	}
	if s, _ := res.Normalized["variety"].AsString(); s != "Unknown" {
		t.Fatalf("variety = %v", res.Normalized["variety"])
	}
	if !res.Changed || len(res.Patch) != 3 {
		t.Fatalf("patch = %v", res.Patch.Keys())
	}
}

func TestNormalize_NumericRatioStringsStay(t *testing.T) {
	res, err := New().Normalize(KindPrediction, doc("p", value.Fields{"accuracy": value.String("0.5"), "variety": value.String("Fuji")}))
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed {
		t.Fatalf("in-range numeric string should be left alone: %v", res.Patch)
	}
}

func TestNormalize_GenericInfersTimestampFields(t *testing.T) {
	in := doc("g", value.Fields{
		"lastLoginTime": value.Number(1.7e12),
		"birthDate":     value.String("2023-11-14"),
		"deleted_at":    value.String("nope"),
		"name":          value.Number(1.7e9),
	})
	res, err := New().Normalize(KindGeneric, in)
	if err != nil {
		t.Fatal(err)
	}
	if res.Normalized["lastLoginTime"].Kind() != value.KindTimestamp {
		t.Fatal("lastLoginTime not canonicalized")
	}
	if res.Normalized["birthDate"].Kind() != value.KindTimestamp {
		t.Fatal("birthDate not canonicalized")
	}
	if res.Normalized["deleted_at"].Kind() != value.KindServerTime {
		t.Fatal("deleted_at should fall back")
	}
	if _, ok := res.Patch["name"]; ok {
		t.Fatal("name is not a timestamp field")
	}
}

func TestNormalize_FallbackDisabled(t *testing.T) {
	rs := Generic
	rs.Fallback = false
	n := New(WithRuleSet(rs))
	res, err := n.Normalize(KindGeneric, doc("g", value.Fields{"created_at": value.String("nope")}))
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed {
		t.Fatalf("unclassifiable field must stay as is without fallback: %v", res.Patch)
	}
}

func TestNormalize_LegacyClassifier(t *testing.T) {
	n := New(WithClassifier(classify.New(classify.Legacy)))
	res, err := n.Normalize(KindPrediction, doc("p", value.Fields{"timestamp": value.Number(5e9)}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Normalized["timestamp"].Equal(ts(t, 5_000_000_000)) {
		t.Fatalf("timestamp = %v", res.Normalized["timestamp"])
	}
}

func TestIsTimestampName(t *testing.T) {
	yes := []string{"createdAt_at", "updated_at", "TIMESTAMP", "birthDate", "Runtime", "validated"}
	no := []string{"name", "AT", "flat", "score"}
	for _, s := range yes {
		if !IsTimestampName(s) {
			t.Fatalf("%q should match", s)
		}
	}
	for _, s := range no {
		if IsTimestampName(s) {
			t.Fatalf("%q should not match", s)
		}
	}
}

func TestKindFor(t *testing.T) {
	if KindFor("captures") != KindCapture || KindFor("Predictions") != KindPrediction || KindFor("users") != KindGeneric {
		t.Fatal("KindFor mapping broken")
	}
	if ParseKind("prediction") != KindPrediction || ParseKind("x") != KindGeneric {
		t.Fatal("ParseKind mapping broken")
	}
}

// Normalizing a normalized document is a no-op
func TestNormalize_Idempotent(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	pool := []value.Value{
		value.Null(), value.Bool(true), value.Bool(false), value.Number(0), value.Number(1.7e9),
		value.Number(1.7e12), value.Number(5e9), value.Number(0.42), value.Number(150), value.Number(-3),
		value.String(""), value.String("  x "), value.String("2023-11-14T22:13:20Z"), value.String("junk"),
		value.String("1700000000"), value.DateTime(time.Unix(1_700_000_000, 5)), ts(t, 1_600_000_000),
	}
	names := []string{"timestamp", "created_at", "captured_at", "image_path", "user_id", "variety", "description", "accuracy", "lastSeenTime", "misc"}
	n := New()
	for i := 0; i < 2000; i++ {
		f := value.Fields{}
		for _, name := range names {
			if r.Intn(2) == 0 {
				f[name] = pool[r.Intn(len(pool))]
			}
		}
		for _, kind := range []Kind{KindCapture, KindPrediction, KindGeneric} {
			first, err := n.Normalize(kind, doc("d", f))
			if err != nil {
				t.Fatalf("%s: %v", kind, err)
			}
			second, err := n.Normalize(kind, doc("d", first.Normalized))
			if err != nil {
				t.Fatalf("%s second pass: %v", kind, err)
			}
			if second.Changed {
				t.Fatalf("%s: second pass changed %v (input %v)", kind, second.Patch.Keys(), f.Keys())
			}
		}
	}
}
