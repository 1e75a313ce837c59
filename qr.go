/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"net/url"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/imposter/internal/game"
)

const qrSize = 320

// inviteURL is the address a phone should open to join code.
func inviteURL(cfg *Config, r *http.Request, code string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     cfg.prefix + "/",
		RawQuery: url.Values{"room": {code}}.Encode(),
	}

	return u.String()
}

// serveQR renders a PNG QR code inviting players into a live room.
func serveQR(cfg *Config, reg *game.Registry, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := game.NormalizeCode(ps.ByName("code"))

		if _, ok := reg.Room(code); !ok {
			http.Error(w, game.ErrRoomNotFound.Error(), http.StatusNotFound)
			return
		}

		png, err := qrcode.Encode(inviteURL(cfg, r, code), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		if _, err := w.Write(png); err != nil {
			errs <- err
			return
		}

		logf(cfg, "SERVE: QR code for room %s (%s) to %s", code, humanReadableSize(int64(len(png))), realIP(r))
	}
}
