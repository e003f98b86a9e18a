// internal/app/features/offline/manifest.go
package offline

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dalemusser/doctorsyria/internal/app/system/imagecdn"
	"go.uber.org/zap"
)

// pwaManifest is the PWA web app manifest structure.
type pwaManifest struct {
	Name            string    `json:"name"`
	ShortName       string    `json:"short_name"`
	Description     string    `json:"description"`
	StartURL        string    `json:"start_url"`
	Scope           string    `json:"scope"`
	Display         string    `json:"display"`
	BackgroundColor string    `json:"background_color"`
	ThemeColor      string    `json:"theme_color"`
	Icons           []pwaIcon `json:"icons"`
}

type pwaIcon struct {
	Src   string `json:"src"`
	Sizes string `json:"sizes"`
	Type  string `json:"type"`
}

var iconSizes = []int{192, 512}

// ServeManifest serves the PWA manifest.json. Icons point at the image CDN.
func (h *Handler) ServeManifest(w http.ResponseWriter, r *http.Request) {
	scope := h.BasePath + "/"
	m := pwaManifest{
		Name:            "Doctor Syria",
		ShortName:       "Doctor Syria",
		Description:     "Find doctors, hospitals and pharmacies across Syria",
		StartURL:        scope,
		Scope:           scope,
		Display:         "standalone",
		BackgroundColor: "#ffffff",
		ThemeColor:      "#0d6efd",
	}

	for _, size := range iconSizes {
		src, err := h.Images.Resolve("/images/logo.png", imagecdn.Options{Width: size, Height: size, Format: imagecdn.FormatPNG})
		if err != nil {
			h.Log.Error("manifest: resolve icon failed", zap.Int("size", size), zap.Error(err))
			continue
		}
		sz := strconv.Itoa(size)
		m.Icons = append(m.Icons, pwaIcon{Src: src, Sizes: sz + "x" + sz, Type: "image/png"})
	}

	w.Header().Set("Content-Type", "application/manifest+json")
	w.Header().Set("Cache-Control", "no-cache")
	_ = json.NewEncoder(w).Encode(m)
}
