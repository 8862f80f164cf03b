package assets

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

var (
	versionSegment = regexp.MustCompile(`^v\d+$`)
	// Cloudinary transformation parameters, e.g. c_fill, w_1200, q_auto.
	transformSegment = regexp.MustCompile(`^(a|ac|af|ar|b|bo|br|c|co|cs|d|dl|dn|dpr|du|e|eo|f|fl|fn|g|h|if|ki|l|o|p|pg|q|r|so|sp|t|u|vc|vs|w|x|y|z)_[^/]+$`)
)

// Asset is a parsed Cloudinary delivery URL.
type Asset struct {
	URL          string
	ResourceType string
	// PublicID is the asset path without transformations, version or extension.
	PublicID  string
	Extension string
	// Transformed is true when the URL carries transformation segments.
	Transformed bool
}

// ParseURL splits a Cloudinary delivery URL into its parts.
func ParseURL(raw string) (Asset, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Asset{}, err
	}
	if u.Host != "res.cloudinary.com" {
		return Asset{}, fmt.Errorf("not a cloudinary url: %s", raw)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	// <cloud>/<resource type>/upload/...
	if len(parts) < 4 || parts[2] != "upload" {
		return Asset{}, fmt.Errorf("unrecognized cloudinary path: %s", u.Path)
	}

	a := Asset{URL: raw, ResourceType: parts[1]}
	rest := parts[3:]
	for len(rest) > 1 && isTransformation(rest[0]) {
		a.Transformed = true
		rest = rest[1:]
	}
	if len(rest) > 1 && versionSegment.MatchString(rest[0]) {
		rest = rest[1:]
	}

	id := strings.Join(rest, "/")
	ext := path.Ext(id)
	if ext != "" {
		id = strings.TrimSuffix(id, ext)
		a.Extension = strings.ToLower(strings.TrimPrefix(ext, "."))
	}
	if id == "" {
		return Asset{}, fmt.Errorf("empty public id: %s", raw)
	}
	a.PublicID = id
	return a, nil
}

func isTransformation(seg string) bool {
	if strings.Contains(seg, ",") {
		return true
	}
	return transformSegment.MatchString(seg)
}

// Key is the R2 object key for a: <prefix>/<public id>.<ext>. ext overrides
// the URL's extension when the URL has none.
func (a Asset) Key(prefix, ext string) string {
	if a.Extension != "" {
		ext = a.Extension
	}
	key := a.PublicID
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		key = prefix + "/" + key
	}
	if ext = strings.TrimPrefix(ext, "."); ext != "" {
		key += "." + ext
	}
	return key
}
