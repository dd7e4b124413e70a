// SPDX-License-Identifier: MPL-2.0

package expand

import (
	"time"

	"github.com/imagewright/imagewright/internal/template"
)

// dateFormat renders the pass timestamp for {{date}}, yy-mm-dd.
const dateFormat = "06-01-02"

// nameContext builds the context that image-name and image-tag templates
// render against: each selected feature under its name as
// {version, versions}, the selected base under its own name the same way,
// "base" as {name, v: {version, versions}}, and "date" bound to the pass
// timestamp. The {{#if corretto}} pattern keys off the feature entries to
// vary a tag by which group alternative was chosen.
func nameContext(base selection, features []selection, now time.Time) template.Context {
	ctx := make(template.Context, len(features)+3)
	for _, f := range features {
		ctx[f.name] = f.res.TemplateValue()
	}
	ctx[base.name] = base.res.TemplateValue()
	ctx["base"] = template.Object{
		"name": template.String(base.name),
		"v":    base.res.TemplateValue(),
	}
	ctx["date"] = template.String(now.UTC().Format(dateFormat))
	return ctx
}
