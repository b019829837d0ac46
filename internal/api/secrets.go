package api

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sipico/vssv/internal/apierror"
	"github.com/sipico/vssv/internal/auth"
	"github.com/sipico/vssv/internal/storage"
)

// secretIDParam is the chi URL parameter holding the secret id.
const secretIDParam = "id"

// HandleGetSecret returns a secret's contents.
// GET /secret/{id}
// Responds 204 when the secret has no contents, 200 with the raw bytes otherwise.
func (h *Handler) HandleGetSecret(w http.ResponseWriter, r *http.Request) {
	// Persistence work must not be abandoned halfway when the client goes away.
	ctx := context.WithoutCancel(r.Context())

	addr, err := h.resolver.Resolve(r)
	if err != nil {
		h.writeError(w, r, clientAddrError(err))
		return
	}

	c, err := h.identify(ctx, addr, r.Header.Get("Authorization"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	r = r.WithContext(auth.WithToken(r.Context(), c.token))

	secretID, err := parseSecretID(chi.URLParam(r, secretIDParam))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ok, err := h.evaluator.CanRead(ctx, c.token, secretID)
	if err != nil {
		h.writeError(w, r, apierror.New(apierror.KindPersistence, err))
		return
	}
	if !ok {
		h.writeError(w, r, apierror.New(apierror.KindUnauthorized, auth.Denied(storage.AuditActionSecretRead, c.token, secretID)))
		return
	}

	secret, err := h.findSecret(ctx, secretID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.audit.Log(ctx, c.addr, storage.AuditActionSecretRead, c.token.ID, secretID); err != nil {
		h.writeError(w, r, apierror.New(apierror.KindPersistence, err))
		return
	}

	h.logger.Info("secret read", "secret", secretID, "token", c.token.ID, "client", c.addr)
	writeSecret(w, secret)
}

// HandlePostSecretContents replaces a secret's contents with the request body.
// POST /secret/{id}/contents
// The file name is left untouched. Responds 204 on success.
func (h *Handler) HandlePostSecretContents(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())

	addr, err := h.resolver.Resolve(r)
	if err != nil {
		h.writeError(w, r, clientAddrError(err))
		return
	}

	c, err := h.identify(ctx, addr, r.Header.Get("Authorization"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	r = r.WithContext(auth.WithToken(r.Context(), c.token))

	secretID, err := parseSecretID(chi.URLParam(r, secretIDParam))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ok, err := h.evaluator.CanWrite(ctx, c.token, secretID)
	if err != nil {
		h.writeError(w, r, apierror.New(apierror.KindPersistence, err))
		return
	}
	if !ok {
		h.writeError(w, r, apierror.New(apierror.KindUnauthorized, auth.Denied(storage.AuditActionSecretWrite, c.token, secretID)))
		return
	}

	if _, err := h.findSecret(ctx, secretID); err != nil {
		h.writeError(w, r, err)
		return
	}

	contents, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, r, apierror.New(apierror.KindPayloadTooLarge, err))
			return
		}
		h.writeError(w, r, apierror.New(apierror.KindBadRequest, err).WithMessage("unreadable request body"))
		return
	}

	if err := h.audit.Log(ctx, c.addr, storage.AuditActionSecretWrite, c.token.ID, secretID); err != nil {
		h.writeError(w, r, apierror.New(apierror.KindPersistence, err))
		return
	}

	if _, err := h.store.UpdateSecretContents(ctx, secretID, contents); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.writeError(w, r, apierror.New(apierror.KindNotFound, err))
			return
		}
		h.writeError(w, r, apierror.New(apierror.KindPersistence, err))
		return
	}

	h.logger.Info("secret contents updated", "secret", secretID, "token", c.token.ID, "client", c.addr, "size", len(contents))
	w.WriteHeader(http.StatusNoContent)
}

// writeSecret renders a secret: 204 without contents, otherwise the raw
// bytes as an attachment.
func writeSecret(w http.ResponseWriter, secret *storage.Secret) {
	if !secret.HasContents() {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", contentDisposition(secret.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(secret.Contents)))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Response write errors are unrecoverable
	w.Write(secret.Contents)
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// contentDisposition builds the attachment header. Printable ASCII names are
// sent as a quoted filename; anything else falls back to the RFC 2231
// encoding produced by mime.FormatMediaType.
func contentDisposition(fileName *string) string {
	if fileName == nil {
		return "attachment"
	}
	name := *fileName
	if isPrintableASCII(name) {
		return `attachment; filename="` + quoteEscaper.Replace(name) + `"`
	}
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}

func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	apierror.Write(w, r, h.logger, err)
}
