package format

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/sysdialect/sysir/compiler/front"
	"github.com/sysdialect/sysir/compiler/value"
)

// Format renders a parsed assembly unit back in canonical form: table keys in
// ingest order, one instruction per line.
func Format(ctx context.Context, b []byte, u *front.Unit) ([]byte, error) {
	b = append(b, '{')

	for i, key := range u.Keys {
		if i != 0 {
			b = append(b, "\n "...)
		}

		var err error

		b, err = formatKey(ctx, b, u, key)
		if err != nil {
			return nil, errors.Wrap(err, "key %v", key)
		}
	}

	b = append(b, "}\n"...)

	return b, nil
}

func formatKey(ctx context.Context, b []byte, u *front.Unit, key value.Keyword) ([]byte, error) {
	switch key {
	case "link-name":
		b = hfmt.Appendf(b, ":link-name %v", value.Format(u.Source.LinkName))
	case "parameter-count":
		b = hfmt.Appendf(b, ":parameter-count %d", u.Source.ParameterCount)
	case "instructions":
		b = append(b, ":instructions\n ["...)

		for i, x := range u.Source.Instructions {
			if i != 0 {
				b = append(b, "\n  "...)
			}

			b = append(b, value.Format(x)...)
		}

		b = append(b, ']')
	default:
		return nil, errors.New("unknown key :%v", key)
	}

	return b, nil
}
