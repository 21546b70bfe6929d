// font picks the font used for UI text. A configured path wins, then the
// first system font found, then the embedded Go Regular font.
package font

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/silbinarywolf/simple-game/internal/logging"
)

// EmbeddedName is the Name of the fallback font
const EmbeddedName = "Go Regular (embedded)"

type Font struct {
	// Name is the file path, or EmbeddedName
	Name string
	Data []byte
}

// SystemPaths returns font files commonly found on goos, preferring fonts
// with CJK coverage.
func SystemPaths(goos string) []string {
	switch goos {
	case "windows":
		windir := os.Getenv("WINDIR")
		if windir == "" {
			windir = `C:\Windows`
		}
		fonts := filepath.Join(windir, "Fonts")
		return []string{
			filepath.Join(fonts, "msyh.ttc"),
			filepath.Join(fonts, "msyh.ttf"),
			filepath.Join(fonts, "simhei.ttf"),
			filepath.Join(fonts, "simsun.ttc"),
			filepath.Join(fonts, "arial.ttf"),
		}
	case "darwin":
		return []string{
			"/System/Library/Fonts/PingFang.ttc",
			"/System/Library/Fonts/STHeiti Light.ttc",
			"/Library/Fonts/Arial Unicode.ttf",
			"/System/Library/Fonts/Supplemental/Arial.ttf",
		}
	case "linux", "freebsd", "openbsd", "netbsd":
		return []string{
			"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
			"/usr/share/fonts/noto-cjk/NotoSansCJK-Regular.ttc",
			"/usr/share/fonts/google-noto-cjk/NotoSansCJK-Regular.ttc",
			"/usr/share/fonts/truetype/wqy/wqy-microhei.ttc",
			"/usr/share/fonts/truetype/wqy/wqy-zenhei.ttc",
			"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
			"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		}
	}
	return nil
}

// Load never fails, it logs why a font was skipped and falls back to the
// embedded font.
func Load(configuredPath string, logger *logging.Logger) Font {
	if logger == nil {
		logger = logging.Discard()
	}
	if configuredPath != "" {
		f, err := readFont(configuredPath)
		if err == nil {
			logger.Info("using configured font", "path", configuredPath)
			return f
		}
		logger.Warn("unable to load configured font", "path", configuredPath, "err", err)
	}
	for _, path := range SystemPaths(runtime.GOOS) {
		f, err := readFont(path)
		if err != nil {
			logger.Debug("system font unavailable", "path", path)
			continue
		}
		logger.Info("using system font", "path", path)
		return f
	}
	logger.Info("using embedded font")
	return Embedded()
}

func Embedded() Font {
	return Font{
		Name: EmbeddedName,
		Data: goregular.TTF,
	}
}

func readFont(path string) (Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Font{}, errors.Wrap(err, "read font")
	}
	if len(data) < 4 {
		return Font{}, errors.Errorf("font file too small: %d bytes", len(data))
	}
	return Font{
		Name: path,
		Data: data,
	}, nil
}
