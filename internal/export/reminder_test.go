package export

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/model"
	"github.com/example/trainer-scheduler/internal/payment"
)

func reminder(overdue int) payment.Reminder {
	return payment.Reminder{
		Client:      model.Client{ID: "ana", Name: "Ana Souza", Phone: "(11) 98888-7777"},
		Status:      payment.Status{ClientID: "ana", DueDate: calendar.NewDate(2024, time.March, 5)},
		OverdueDays: overdue,
	}
}

func TestReminderMessage_Portuguese(t *testing.T) {
	t.Parallel()

	msg := ReminderMessage(reminder(9), decimal.RequireFromString("1500"), calendar.NewDate(2024, time.March, 1), language.MustParse("pt-BR"))

	assert.True(t, strings.HasPrefix(msg, "Olá, Ana! Tudo bem?"), msg)
	assert.Contains(t, msg, "03/2024")
	assert.Contains(t, msg, "R$ 1.500,00")
	assert.Contains(t, msg, "Dias em atraso: 9")
}

func TestReminderMessage_EnglishWithoutOverdueLine(t *testing.T) {
	t.Parallel()

	msg := ReminderMessage(reminder(0), decimal.RequireFromString("150"), calendar.NewDate(2024, time.March, 1), language.AmericanEnglish)

	assert.True(t, strings.HasPrefix(msg, "Hi Ana"), msg)
	assert.Contains(t, msg, "BRL 150.00")
	assert.NotContains(t, msg, "overdue")
}

func TestReminderMessage_AmountKeepsDecimalPrecision(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		amount string
		lang   language.Tag
		want   string
	}{
		{"large portuguese", "123456789012345678.91", language.BrazilianPortuguese, "R$ 123.456.789.012.345.678,91"},
		{"large english", "123456789012345678.91", language.English, "BRL 123,456,789,012,345,678.91"},
		{"rounds half away from zero", "1999.995", language.BrazilianPortuguese, "R$ 2.000,00"},
		{"cents only", "0.1", language.English, "BRL 0.10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg := ReminderMessage(reminder(0), decimal.RequireFromString(tt.amount), calendar.NewDate(2024, time.March, 1), tt.lang)
			assert.Contains(t, msg, tt.want)
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"(11) 98888-7777":   "5511988887777",
		"+55 11 98888-7777": "5511988887777",
		"":                  "",
		"n/a":               "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePhone(in), "phone %q", in)
	}
}

func TestWhatsAppLink(t *testing.T) {
	t.Parallel()

	link := WhatsAppLink("(11) 98888-7777", "Olá, Ana!\nTudo bem?")
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "wa.me", parsed.Host)
	assert.Equal(t, "/5511988887777", parsed.Path)
	assert.Equal(t, "Olá, Ana!\nTudo bem?", parsed.Query().Get("text"))

	assert.Equal(t, "https://wa.me/5511988887777", WhatsAppLink("11988887777", ""))
	assert.Empty(t, WhatsAppLink("", "hello"))
}

func TestFirstName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Ana", FirstName("  Ana Souza "))
	assert.Empty(t, FirstName(""))
}
