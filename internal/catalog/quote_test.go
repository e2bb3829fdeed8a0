package catalog

import "testing"

func TestValidateIdentifierAcceptsPlainNames(t *testing.T) {
	for _, name := range []string{"orders", "_private", "order_items2"} {
		if err := ValidateIdentifier(name); err != nil {
			t.Errorf("ValidateIdentifier(%q) = %v, want nil", name, err)
		}
	}
}

func TestValidateIdentifierRejectsUnsafeNames(t *testing.T) {
	for _, name := range []string{"orders; DROP TABLE x", "1leading", "with space", ""} {
		if err := ValidateIdentifier(name); err == nil {
			t.Errorf("ValidateIdentifier(%q) = nil, want error", name)
		}
	}
}

func TestQuoteIdentifier(t *testing.T) {
	if got := QuoteIdentifier(`my"table`); got != `"my""table"` {
		t.Errorf("got %q, want doubled-quote escaping", got)
	}
}

func TestQuoteLiteral(t *testing.T) {
	if got := QuoteLiteral(`it's`); got != `'it''s'` {
		t.Errorf("got %q, want escaped literal", got)
	}
}
