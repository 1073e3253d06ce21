// Package httpjson holds the JSON envelope and error mapping shared by all API handlers.
package httpjson

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/stockledger/internal/domain"
)

// maxBodyBytes bounds request bodies; ledger payloads are tiny
const maxBodyBytes = 1 << 20

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// OK writes {"success": true, "data": data}
func OK(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": data})
}

// Created writes a 201 envelope with a message
func Created(w http.ResponseWriter, data interface{}, message string) {
	WriteJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "data": data, "message": message})
}

// Message writes a success envelope with only a message
func Message(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": message})
}

// Page writes a list envelope with pagination framing
func Page(w http.ResponseWriter, items interface{}, p domain.Pagination) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"data":       items,
		"pagination": p,
	})
}

// StatusFor maps a ledger error kind to its HTTP status
func StatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error writes {"success": false, "error": kind, "message": detail}.
// Store failures are logged with their cause and reported generically.
func Error(w http.ResponseWriter, log zerolog.Logger, err error) {
	status := StatusFor(err)
	message := domain.DetailOf(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
		message = "internal storage error"
	}

	WriteJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   string(domain.KindOf(err)),
		"message": message,
	})
}

// Decode reads a JSON body into v, rejecting unknown fields
func Decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Validation("request body is empty")
		}
		return domain.Validation("invalid request body: %v", err)
	}
	return nil
}

// QueryInt reads an integer query parameter, falling back to def when absent or malformed
func QueryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// QueryString reads and trims a query parameter
func QueryString(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// Float renders a decimal for JSON responses
func Float(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// Round2 renders a money amount rounded to cents
func Round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// Money formats an amount with its currency symbol, e.g. "$1,234.50" for USD.
// Amounts are rounded to the currency's minor unit; unknown codes fall back to "<amount> <code>".
func Money(amount decimal.Decimal, currency domain.Currency) string {
	cur := money.GetCurrency(string(currency))
	if cur == nil {
		return amount.StringFixed(2) + " " + string(currency)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), cur.Code).Display()
}
