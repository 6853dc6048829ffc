package flash

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/failuretoload/datamonster-web/internal/services/web/platform/requestmeta"
)

func TestWriteThenReadAndClear(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	Write(rr, httptest.NewRequest(http.MethodPost, "/", nil), Success("web.settlements.notice.created"), requestmeta.SchemePolicy{})
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName {
		t.Fatalf("cookies = %+v, want one %s cookie", cookies, CookieName)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	next := httptest.NewRecorder()
	notice, ok := ReadAndClear(next, req, requestmeta.SchemePolicy{})
	if !ok {
		t.Fatal("expected notice")
	}
	if notice.Kind != KindSuccess || notice.Key != "web.settlements.notice.created" {
		t.Fatalf("notice = %+v", notice)
	}
	cleared := next.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Fatalf("expected flash cookie to be expired, got %+v", cleared)
	}
}

func TestWriteDropsInvalidNotice(t *testing.T) {
	t.Parallel()

	for _, notice := range []Notice{{Kind: KindInfo}, {Kind: "loud", Key: "x"}} {
		rr := httptest.NewRecorder()
		Write(rr, httptest.NewRequest(http.MethodPost, "/", nil), notice, requestmeta.SchemePolicy{})
		if got := len(rr.Result().Cookies()); got != 0 {
			t.Fatalf("Write(%+v) set %d cookies, want 0", notice, got)
		}
	}
}

func TestReadAndClearRejectsTamperedCookie(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "%%%not-base64"})
	rr := httptest.NewRecorder()
	if _, ok := ReadAndClear(rr, req, requestmeta.SchemePolicy{}); ok {
		t.Fatal("expected tampered cookie to be rejected")
	}
	if len(rr.Result().Cookies()) != 1 {
		t.Fatal("expected tampered cookie to be cleared")
	}
}
