package checkin

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"checkin-go/domain/balance"
	"checkin-go/infrastructure/httpclient"
)

const errorExcerpt = 50

// ParseUserInfo interprets a user-info response.
func ParseUserInfo(resp *httpclient.Response) *UserInfo {
	if resp.StatusCode == http.StatusOK {
		if !gjson.ValidBytes(resp.Body) {
			return userInfoError(fmt.Errorf("invalid JSON response"))
		}
		doc := gjson.ParseBytes(resp.Body)
		if doc.IsObject() && truthy(doc.Get("success")) {
			quota := scaleQuota(doc.Get("data.quota"))
			used := scaleQuota(doc.Get("data.used_quota"))
			return &UserInfo{
				Success:   true,
				Quota:     quota,
				UsedQuota: used,
				Display:   fmt.Sprintf(":money: Current balance: $%s, Used: $%s", quota.StringFixed(2), used.StringFixed(2)),
			}
		}
	}
	return &UserInfo{Error: fmt.Sprintf("Failed to get user info: HTTP %d", resp.StatusCode)}
}

func userInfoError(err error) *UserInfo {
	return &UserInfo{Error: fmt.Sprintf("Failed to get user info: %s...", Truncate(err.Error(), errorExcerpt))}
}

// scaleQuota converts a raw quota number to display units rounded to cents.
// Missing or non-numeric values count as zero.
func scaleQuota(r gjson.Result) decimal.Decimal {
	if r.Type != gjson.Number {
		return decimal.Zero
	}
	return balance.QuotaFromRaw(r.Num)
}

// ClassifyCheckin interprets a sign-in response. A nil error means the
// check-in succeeded.
func ClassifyCheckin(resp *httpclient.Response) *Error {
	if resp.StatusCode != http.StatusOK {
		return newError(KindTransport, "HTTP %d", resp.StatusCode)
	}

	if !gjson.ValidBytes(resp.Body) {
		if strings.Contains(strings.ToLower(string(resp.Body)), "success") {
			return nil
		}
		return newError(KindResponseFormat, "Invalid response format")
	}

	doc := gjson.ParseBytes(resp.Body)
	if !doc.IsObject() {
		return newError(KindResponseFormat, "Invalid response format")
	}
	if numberEquals(doc.Get("ret"), 1) || numberEquals(doc.Get("code"), 0) || truthy(doc.Get("success")) {
		return nil
	}

	msg := "Unknown error"
	if m := doc.Get("msg"); m.Exists() {
		msg = m.String()
	} else if m := doc.Get("message"); m.Exists() {
		msg = m.String()
	}
	return newError(KindCheckin, "%s", msg)
}

// truthy reports whether a JSON value counts as true: true, non-zero
// numbers, and non-empty strings, arrays and objects.
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	case gjson.JSON:
		if r.IsArray() {
			return len(r.Array()) > 0
		}
		return len(r.Map()) > 0
	default:
		return false
	}
}

// numberEquals compares a JSON value with n, treating booleans as 1 and 0.
func numberEquals(r gjson.Result, n float64) bool {
	switch r.Type {
	case gjson.Number:
		return r.Num == n
	case gjson.True:
		return n == 1
	case gjson.False:
		return n == 0
	default:
		return false
	}
}
