package staticapi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mohammed-shakir/static-snapshot/internal/core/camera"
	"github.com/mohammed-shakir/static-snapshot/internal/core/encoding"
	"github.com/mohammed-shakir/static-snapshot/internal/core/overlay"
)

// BuildPath validates req and renders its URL path:
//
//	/v4/{ids}[/{overlays}]/{position}/{w}x{h}[@2x].{format}
//	/styles/v1/{owner}/{id}/static[/{overlays}]/{position}/{w}x{h}[@2x]
func BuildPath(req Request) (string, error) {
	if err := req.Output.Validate(); err != nil {
		return "", configErr("output", err)
	}
	pos, err := camera.Resolve(req.Viewpoint, req.Output)
	if err != nil {
		return "", configErr("viewpoint", err)
	}
	overlays, err := overlay.Join(req.Overlays)
	if err != nil {
		return "", configErr("overlays", err)
	}

	segs := make([]string, 0, 8)
	switch src := req.Source.(type) {
	case TilesetSource:
		if len(src.IDs) == 0 {
			return "", configErr("tilesets", errors.New("at least one tileset id is required"))
		}
		ids := make([]string, len(src.IDs))
		for i, id := range src.IDs {
			if strings.TrimSpace(id) == "" {
				return "", configErr("tilesets", fmt.Errorf("tileset id %d is empty", i))
			}
			ids[i] = encoding.PercentEncode(id, encoding.PathSafe)
		}
		if pos.Pitch != 0 || pos.Heading != 0 {
			return "", configErr("viewpoint", errors.New("pitch and heading need a style source"))
		}
		segs = append(segs, "v4", strings.Join(ids, ","))
	case StyleSource:
		if strings.TrimSpace(src.Owner) == "" || strings.TrimSpace(src.ID) == "" {
			return "", configErr("style", errors.New("style owner and id are required"))
		}
		segs = append(segs, "styles", "v1",
			encoding.PercentEncode(src.Owner, encoding.PathSafe),
			encoding.PercentEncode(src.ID, encoding.PathSafe),
			"static")
	case nil:
		return "", configErr("source", errors.New("a tileset or style source is required"))
	default:
		return "", configErr("source", fmt.Errorf("unsupported source %T", req.Source))
	}

	if overlays != "" {
		segs = append(segs, overlays)
	}
	segs = append(segs, pos.Token())

	size := req.Output.SizeToken()
	if _, ok := req.Source.(TilesetSource); ok {
		size += "." + string(req.Output.EffectiveFormat())
	}
	segs = append(segs, size)
	return "/" + strings.Join(segs, "/"), nil
}
