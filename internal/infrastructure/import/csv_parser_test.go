package csvimport

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCSVParser(t *testing.T) {
	t.Run("Valid UTF-8 CSV", func(t *testing.T) {
		csv := "name,email,phone\nAlice,alice@acme.com,555-0100\nBob,bob@initech.io,555-0101"
		parser, err := NewCSVParser(strings.NewReader(csv))

		require.NoError(t, err)
		require.NotNil(t, parser)
	})

	t.Run("UTF-8 BOM is stripped", func(t *testing.T) {
		// UTF-8 BOM: 0xEF, 0xBB, 0xBF
		csv := "\xEF\xBB\xBFname,email\nAlice,alice@acme.com"
		parser, err := NewCSVParser(strings.NewReader(csv))

		require.NoError(t, err)
		require.NotNil(t, parser)

		err = parser.ParseHeader()
		require.NoError(t, err)

		// Header should not include BOM
		headers := parser.Headers()
		assert.Equal(t, "name", headers[0])
	})

	t.Run("Empty file returns error", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader(""))

		assert.Error(t, err)
		assert.Nil(t, parser)
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("Custom delimiter", func(t *testing.T) {
		csv := "name;email;phone\nAlice;alice@acme.com;555-0100"
		parser, err := NewCSVParser(strings.NewReader(csv), WithDelimiter(';'))

		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())

		headers := parser.Headers()
		assert.Equal(t, []string{"name", "email", "phone"}, headers)
	})
}

func TestParseHeader(t *testing.T) {
	t.Run("Valid header", func(t *testing.T) {
		csv := "name,email,phone\nAlice,alice@acme.com,555-0100"
		parser, _ := NewCSVParser(strings.NewReader(csv))

		err := parser.ParseHeader()

		require.NoError(t, err)
		assert.Equal(t, []string{"name", "email", "phone"}, parser.Headers())
		assert.Equal(t, map[string]int{"name": 0, "email": 1, "phone": 2}, parser.HeaderMap())
	})

	t.Run("Header with spaces trimmed", func(t *testing.T) {
		csv := "  name  ,  email  ,  phone  \nAlice,alice@acme.com,555-0100"
		parser, _ := NewCSVParser(strings.NewReader(csv))

		err := parser.ParseHeader()

		require.NoError(t, err)
		assert.Equal(t, []string{"name", "email", "phone"}, parser.Headers())
	})

	t.Run("HasHeader check", func(t *testing.T) {
		csv := "name,email,phone\nAlice,alice@acme.com,555-0100"
		parser, _ := NewCSVParser(strings.NewReader(csv))
		parser.ParseHeader()

		assert.True(t, parser.HasHeader("name"))
		assert.True(t, parser.HasHeader("email"))
		assert.False(t, parser.HasHeader("address"))
	})

	t.Run("ValidateHeaders finds missing", func(t *testing.T) {
		csv := "name,email\nAlice,alice@acme.com"
		parser, _ := NewCSVParser(strings.NewReader(csv))
		parser.ParseHeader()

		missing := parser.ValidateHeaders([]string{"name", "email", "phone", "address"})
		assert.ElementsMatch(t, []string{"phone", "address"}, missing)
	})
}

func TestReadRow(t *testing.T) {
	t.Run("Read single row", func(t *testing.T) {
		csv := "name,email,phone\nAlice,alice@acme.com,555-0100"
		parser, _ := NewCSVParser(strings.NewReader(csv))
		parser.ParseHeader()

		row, err := parser.ReadRow()

		require.NoError(t, err)
		assert.Equal(t, 2, row.LineNumber)
		assert.Equal(t, "Alice", row.Get("name"))
		assert.Equal(t, "alice@acme.com", row.Get("email"))
		assert.Equal(t, "555-0100", row.Get("phone"))
	})

	t.Run("Row with missing columns", func(t *testing.T) {
		csv := "name,email,phone,address\nAlice,alice@acme.com"
		parser, _ := NewCSVParser(strings.NewReader(csv))
		parser.ParseHeader()

		row, err := parser.ReadRow()

		require.NoError(t, err)
		assert.Equal(t, "Alice", row.Get("name"))
		assert.Equal(t, "alice@acme.com", row.Get("email"))
		assert.Equal(t, "", row.Get("phone"))
		assert.Equal(t, "", row.Get("address"))
	})

	t.Run("GetOrDefault", func(t *testing.T) {
		csv := "name,email,phone\nAlice,alice@acme.com,"
		parser, _ := NewCSVParser(strings.NewReader(csv))
		parser.ParseHeader()

		row, _ := parser.ReadRow()

		assert.Equal(t, "Alice", row.GetOrDefault("name", "default"))
		assert.Equal(t, "N/A", row.GetOrDefault("phone", "N/A"))
		assert.Equal(t, "none", row.GetOrDefault("missing", "none"))
	})

	t.Run("IsEmpty row", func(t *testing.T) {
		csv := "name,email\n,,\nAlice,alice@acme.com"
		parser, _ := NewCSVParser(strings.NewReader(csv))
		parser.ParseHeader()

		row1, _ := parser.ReadRow()
		assert.True(t, row1.IsEmpty())

		row2, _ := parser.ReadRow()
		assert.False(t, row2.IsEmpty())
	})

	t.Run("EOF after last row", func(t *testing.T) {
		csv := "name,email\nAlice,alice@acme.com"
		parser, _ := NewCSVParser(strings.NewReader(csv))
		parser.ParseHeader()

		_, err := parser.ReadRow()
		require.NoError(t, err)

		_, err = parser.ReadRow()
		assert.Equal(t, io.EOF, err)
	})
}

func TestReadAllRows(t *testing.T) {
	t.Run("Read all rows", func(t *testing.T) {
		csv := "name,email\nAlice,alice@acme.com\nBob,bob@initech.io\nCarol,carol@globex.net"
		parser, _ := NewCSVParser(strings.NewReader(csv))
		parser.ParseHeader()

		rows, err := parser.ReadAllRows()

		require.NoError(t, err)
		assert.Len(t, rows, 3)
		assert.Equal(t, "Alice", rows[0].Get("name"))
		assert.Equal(t, "Bob", rows[1].Get("name"))
		assert.Equal(t, "Carol", rows[2].Get("name"))
	})

	t.Run("Skip empty rows", func(t *testing.T) {
		csv := "name,email\nAlice,alice@acme.com\n,,\n,,\nBob,bob@initech.io"
		parser, _ := NewCSVParser(strings.NewReader(csv))
		parser.ParseHeader()

		rows, err := parser.ReadAllRows()

		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("TotalRows count", func(t *testing.T) {
		csv := "name,email\nAlice,alice@acme.com\nBob,bob@initech.io\nCarol,carol@globex.net"
		parser, _ := NewCSVParser(strings.NewReader(csv))
		parser.ParseHeader()

		parser.ReadAllRows()

		assert.Equal(t, 3, parser.TotalRows())
	})
}

func TestQuotedFields(t *testing.T) {
	t.Run("Fields with quotes", func(t *testing.T) {
		csv := `name,company_name,address
Alice,"Acme Corp","12 Main St"
Bob,"Initech","Suite 4, Floor 2"
Carol,"Globex ""West""","With ""quotes"""
`
		parser, _ := NewCSVParser(strings.NewReader(csv))
		parser.ParseHeader()

		row1, _ := parser.ReadRow()
		assert.Equal(t, "Acme Corp", row1.Get("company_name"))
		assert.Equal(t, "12 Main St", row1.Get("address"))

		row2, _ := parser.ReadRow()
		assert.Equal(t, "Suite 4, Floor 2", row2.Get("address"))

		row3, _ := parser.ReadRow()
		assert.Equal(t, `Globex "West"`, row3.Get("company_name"))
		assert.Equal(t, `With "quotes"`, row3.Get("address"))
	})
}

func TestMultilineFields(t *testing.T) {
	t.Run("Fields with newlines", func(t *testing.T) {
		csv := "name,email,address\nAlice,alice@acme.com,\"Line 1\nLine 2\nLine 3\""
		parser, _ := NewCSVParser(strings.NewReader(csv))
		parser.ParseHeader()

		row, _ := parser.ReadRow()
		assert.Equal(t, "Line 1\nLine 2\nLine 3", row.Get("address"))
	})
}

func TestRowAccessors(t *testing.T) {
	csv := "name,email,phone\nAlice,alice@acme.com,"
	parser, _ := NewCSVParser(strings.NewReader(csv))
	parser.ParseHeader()

	row, err := parser.ReadRow()
	require.NoError(t, err)

	assert.Equal(t, "alice@acme.com", row.Get("email"))
	assert.Equal(t, "", row.Get("missing"))
	assert.Equal(t, "n/a", row.GetOrDefault("phone", "n/a"))
	assert.Equal(t, "Alice", row.GetOrDefault("name", "n/a"))
	assert.False(t, row.IsEmpty())
}
