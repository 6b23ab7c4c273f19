package scaffold

import (
	"fmt"
	"strings"

	"github.com/armature-dev/armature/internal/naming"
	"github.com/armature-dev/armature/internal/resource"
)

// containerData feeds the per-resource container templates.
type containerData struct {
	naming.Forms
	HasValidation bool
	SchemaImports string // "createPostSchema, updatePostSchema"
}

const serviceContainer = `import { PrismaClient, Prisma } from '@prisma/client';
import { NotFoundError } from '../utils/errors';

const prisma = new PrismaClient();

export class {{.Pascal}}Service {
  // armature:methods
}

export const {{.Camel}}Service = new {{.Pascal}}Service();
`

const controllerContainer = `import { Request, Response, NextFunction } from 'express';
import { {{.Camel}}Service } from '../services/{{.Kebab}}.service';

export const {{.Camel}}Controller = {
  // armature:handlers
};
`

const routesContainer = `import { Router } from 'express';
import { {{.Camel}}Controller } from '../controllers/{{.Kebab}}.controller';
{{- if .HasValidation}}
import { validate } from '../middleware/validate';
import { {{.SchemaImports}} } from '../validation/{{.Kebab}}.schema';
{{- end}}

const router = Router();

// armature:routes

export default router;
`

const validationContainer = `import { z } from 'zod';

// armature:schemas
`

// ResourceFiles emits the per-resource container files plus the registrar
// insertions that mount the resource router, in dependency order: containers
// before the registrar lines that reference them. The capability fragments
// from Expand are inserted into these containers.
func ResourceFiles(desc *resource.Descriptor, caps []Capability) ([]Artifact, error) {
	forms, err := desc.Forms()
	if err != nil {
		return nil, err
	}

	data := containerData{Forms: forms, HasValidation: needsValidation(caps)}
	if data.HasValidation {
		var imports []string
		for _, c := range caps {
			switch c {
			case CapCreate:
				imports = append(imports, "create"+forms.Pascal+"Schema")
			case CapUpdate:
				imports = append(imports, "update"+forms.Pascal+"Schema")
			}
		}
		data.SchemaImports = strings.Join(imports, ", ")
	}

	var out []Artifact
	for _, c := range []struct {
		path string
		kind Kind
		tmpl string
	}{
		{ServicePath(forms), KindService, serviceContainer},
		{ControllerPath(forms), KindController, controllerContainer},
		{RoutesPath(forms), KindRoute, routesContainer},
	} {
		content, err := render("container:"+string(c.kind), c.tmpl, data)
		if err != nil {
			return nil, err
		}
		out = append(out, Artifact{
			Path:     c.path,
			Kind:     c.kind,
			Merge:    MergeReplace,
			Content:  content,
			Resource: forms.Snake,
		})
	}

	out = append(out,
		Artifact{
			Path:      "src/routes/index.ts",
			Kind:      KindRoute,
			Merge:     MergeInsert,
			Content:   fmt.Sprintf("import %sRoutes from './%s.routes';", forms.Camel, forms.Kebab),
			Resource:  forms.Snake,
			InsertKey: forms.Snake + ":registrar-import",
			Anchor:    AnchorImports,
		},
		Artifact{
			Path:      "src/routes/index.ts",
			Kind:      KindRoute,
			Merge:     MergeInsert,
			Content:   fmt.Sprintf("router.use('%s', %sRoutes);", forms.RoutePath, forms.Camel),
			Resource:  forms.Snake,
			InsertKey: forms.Snake + ":registrar-mount",
			Anchor:    AnchorMounts,
		},
	)

	return out, nil
}

// Validation emits the validation schema container for a resource plus the
// validate middleware the generated routes import. Only meaningful when the
// capability set includes create or update.
func Validation(desc *resource.Descriptor, caps []Capability) ([]Artifact, error) {
	if !needsValidation(caps) {
		return nil, nil
	}
	forms, err := desc.Forms()
	if err != nil {
		return nil, err
	}

	content, err := render("validation-container", validationContainer, containerData{Forms: forms})
	if err != nil {
		return nil, err
	}
	mw, err := Middleware(MiddlewareValidate, "")
	if err != nil {
		return nil, err
	}
	return []Artifact{
		{
			Path:     ValidationPath(forms),
			Kind:     KindSchema,
			Merge:    MergeReplace,
			Content:  content,
			Resource: forms.Snake,
		},
		mw,
	}, nil
}

// Model emits the Prisma model block for a descriptor as an idempotent
// insert into the schema aggregator.
func Model(desc *resource.Descriptor) (Artifact, error) {
	if err := desc.Validate(); err != nil {
		return Artifact{}, err
	}
	forms, err := desc.Forms()
	if err != nil {
		return Artifact{}, err
	}

	type row struct{ name, typ, attrs string }
	rows := []row{{"id", "String", "@id @default(uuid())"}}

	for _, f := range desc.Fields {
		name, err := naming.Camel(f.Name)
		if err != nil {
			return Artifact{}, err
		}
		typ := prismaType(f.Type)
		if f.Nullable {
			typ += "?"
		}
		attrs := ""
		if f.Unique {
			attrs = "@unique"
		}
		rows = append(rows, row{name, typ, attrs})
	}

	for _, rel := range desc.Relations {
		target, err := naming.ForResource(rel.Target)
		if err != nil {
			return Artifact{}, err
		}
		switch rel.Cardinality {
		case resource.OneToMany, resource.ManyToMany:
			rows = append(rows, row{target.CamelPlural, target.Pascal + "[]", ""})
		case resource.OneToOne:
			rows = append(rows, row{target.Camel, target.Pascal + "?", ""})
		default: // many-to-one
			fk := target.Camel + "Id"
			rows = append(rows, row{
				target.Camel, target.Pascal,
				fmt.Sprintf("@relation(fields: [%s], references: [id])", fk),
			})
			rows = append(rows, row{fk, "String", ""})
		}
	}

	rows = append(rows,
		row{"createdAt", "DateTime", "@default(now())"},
		row{"updatedAt", "DateTime", "@updatedAt"},
	)

	// Align the name and type columns the way prisma format does.
	nameW, typW := 0, 0
	for _, r := range rows {
		if len(r.name) > nameW {
			nameW = len(r.name)
		}
		if len(r.typ) > typW {
			typW = len(r.typ)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "model %s {\n", forms.Pascal)
	for _, r := range rows {
		if r.attrs == "" {
			fmt.Fprintf(&b, "  %-*s %s\n", nameW, r.name, r.typ)
		} else {
			fmt.Fprintf(&b, "  %-*s %-*s %s\n", nameW, r.name, typW, r.typ, r.attrs)
		}
	}
	b.WriteString("}")

	return Artifact{
		Path:      "prisma/schema.prisma",
		Kind:      KindSchema,
		Merge:     MergeInsert,
		Content:   b.String(),
		Resource:  forms.Snake,
		InsertKey: forms.Snake + ":model",
		Anchor:    AnchorModels,
	}, nil
}

func prismaType(t resource.SemanticType) string {
	switch t {
	case resource.TypeInt:
		return "Int"
	case resource.TypeFloat:
		return "Float"
	case resource.TypeBoolean:
		return "Boolean"
	case resource.TypeDateTime:
		return "DateTime"
	case resource.TypeJSON:
		return "Json"
	default: // string, text
		return "String"
	}
}
