package scaffold

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/armature-dev/armature/internal/naming"
	"github.com/armature-dev/armature/internal/resource"
)

// Anchor lines inside generated container files. Insert-style artifacts are
// placed immediately above their anchor.
const (
	AnchorMethods  = "  // armature:methods"
	AnchorHandlers = "  // armature:handlers"
	AnchorRoutes   = "// armature:routes"
	AnchorSchemas  = "// armature:schemas"
	AnchorImports  = "// armature:imports"
	AnchorMounts   = "// armature:mounts"
	AnchorModels   = "// armature:models"
)

// Generated file locations, relative to the project root.
func ServicePath(f naming.Forms) string    { return "src/services/" + f.Kebab + ".service.ts" }
func ControllerPath(f naming.Forms) string { return "src/controllers/" + f.Kebab + ".controller.ts" }
func RoutesPath(f naming.Forms) string     { return "src/routes/" + f.Kebab + ".routes.ts" }
func ValidationPath(f naming.Forms) string { return "src/validation/" + f.Kebab + ".schema.ts" }

// Expand emits the capability-driven fragment artifacts for a descriptor.
// For each requested capability (in the order given) it produces, in
// dependency order: validation schema fragment (create/update only), then
// service method, controller handler and route registration. Relation
// include fragments follow the capability groups. Output is byte-identical
// across calls for the same input.
func Expand(desc *resource.Descriptor, caps []Capability) ([]Artifact, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	forms, err := desc.Forms()
	if err != nil {
		return nil, err
	}

	var artifacts []Artifact
	for _, cap := range caps {
		group, err := expandCapability(desc, forms, cap)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, group...)
	}

	for _, rel := range desc.Relations {
		a, err := relationArtifact(forms, rel)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}

	return artifacts, nil
}

func expandCapability(desc *resource.Descriptor, forms naming.Forms, cap Capability) ([]Artifact, error) {
	var out []Artifact
	key := func(kind Kind) string {
		return fmt.Sprintf("%s:%s:%s", forms.Snake, kind, cap)
	}

	if cap == CapCreate || cap == CapUpdate {
		content, err := renderValidation(desc, forms, cap)
		if err != nil {
			return nil, err
		}
		out = append(out, Artifact{
			Path:       ValidationPath(forms),
			Kind:       KindSchema,
			Merge:      MergeInsert,
			Content:    content,
			Resource:   forms.Snake,
			Capability: cap,
			InsertKey:  key(KindSchema),
			Anchor:     AnchorSchemas,
		})
	}

	service, err := render("service:"+string(cap), serviceFragments[cap], forms)
	if err != nil {
		return nil, err
	}
	out = append(out, Artifact{
		Path:       ServicePath(forms),
		Kind:       KindService,
		Merge:      MergeInsert,
		Content:    service,
		Resource:   forms.Snake,
		Capability: cap,
		InsertKey:  key(KindService),
		Anchor:     AnchorMethods,
	})

	controller, err := render("controller:"+string(cap), controllerFragments[cap], forms)
	if err != nil {
		return nil, err
	}
	out = append(out, Artifact{
		Path:       ControllerPath(forms),
		Kind:       KindController,
		Merge:      MergeInsert,
		Content:    controller,
		Resource:   forms.Snake,
		Capability: cap,
		InsertKey:  key(KindController),
		Anchor:     AnchorHandlers,
	})

	route, err := render("route:"+string(cap), routeFragments[cap], forms)
	if err != nil {
		return nil, err
	}
	out = append(out, Artifact{
		Path:       RoutesPath(forms),
		Kind:       KindRoute,
		Merge:      MergeInsert,
		Content:    route,
		Resource:   forms.Snake,
		Capability: cap,
		InsertKey:  key(KindRoute),
		Anchor:     AnchorRoutes,
	})

	return out, nil
}

// serviceFragments are class-body methods inserted into the service file.
var serviceFragments = map[Capability]string{
	CapList: `  async list() {
    return prisma.{{.Camel}}.findMany();
  }`,
	CapGetByID: `  async getById(id: string) {
    const {{.Camel}} = await prisma.{{.Camel}}.findUnique({ where: { id } });
    if (!{{.Camel}}) {
      throw new NotFoundError(` + "`{{.Pascal}} ${id} not found`" + `);
    }
    return {{.Camel}};
  }`,
	CapCreate: `  async create(data: Prisma.{{.Pascal}}CreateInput) {
    return prisma.{{.Camel}}.create({ data });
  }`,
	CapUpdate: `  async update(id: string, data: Prisma.{{.Pascal}}UpdateInput) {
    return prisma.{{.Camel}}.update({ where: { id }, data });
  }`,
	CapDelete: `  async remove(id: string) {
    await prisma.{{.Camel}}.delete({ where: { id } });
  }`,
}

// controllerFragments are object properties inserted into the controller.
var controllerFragments = map[Capability]string{
	CapList: `  async list(_req: Request, res: Response, next: NextFunction) {
    try {
      res.json(await {{.Camel}}Service.list());
    } catch (err) {
      next(err);
    }
  },`,
	CapGetByID: `  async getById(req: Request, res: Response, next: NextFunction) {
    try {
      res.json(await {{.Camel}}Service.getById(req.params.id));
    } catch (err) {
      next(err);
    }
  },`,
	CapCreate: `  async create(req: Request, res: Response, next: NextFunction) {
    try {
      res.status(201).json(await {{.Camel}}Service.create(req.body));
    } catch (err) {
      next(err);
    }
  },`,
	CapUpdate: `  async update(req: Request, res: Response, next: NextFunction) {
    try {
      res.json(await {{.Camel}}Service.update(req.params.id, req.body));
    } catch (err) {
      next(err);
    }
  },`,
	CapDelete: `  async remove(req: Request, res: Response, next: NextFunction) {
    try {
      await {{.Camel}}Service.remove(req.params.id);
      res.status(204).end();
    } catch (err) {
      next(err);
    }
  },`,
}

// routeFragments are registration lines inserted into the resource router.
var routeFragments = map[Capability]string{
	CapList:    `router.get('/', {{.Camel}}Controller.list);`,
	CapGetByID: `router.get('/:id', {{.Camel}}Controller.getById);`,
	CapCreate:  `router.post('/', validate(create{{.Pascal}}Schema), {{.Camel}}Controller.create);`,
	CapUpdate:  `router.put('/:id', validate(update{{.Pascal}}Schema), {{.Camel}}Controller.update);`,
	CapDelete:  `router.delete('/:id', {{.Camel}}Controller.remove);`,
}

// validationData feeds the zod schema fragment template.
type validationData struct {
	naming.Forms
	Op     string // "create" or "update"
	Fields []zodField
}

type zodField struct {
	Name string
	Zod  string
}

const validationFragment = `export const {{.Op}}{{.Pascal}}Schema = z.object({
{{- range .Fields}}
  {{.Name}}: {{.Zod}},
{{- end}}
}){{if eq .Op "update"}}.partial(){{end}};`

func renderValidation(desc *resource.Descriptor, forms naming.Forms, cap Capability) (string, error) {
	data := validationData{Forms: forms, Op: "create"}
	if cap == CapUpdate {
		data.Op = "update"
	}
	for _, f := range desc.Fields {
		name, err := naming.Camel(f.Name)
		if err != nil {
			return "", err
		}
		data.Fields = append(data.Fields, zodField{Name: name, Zod: zodType(f)})
	}
	return render("validation:"+data.Op, validationFragment, data)
}

func zodType(f resource.Field) string {
	var z string
	switch f.Type {
	case resource.TypeInt:
		z = "z.number().int()"
	case resource.TypeFloat:
		z = "z.number()"
	case resource.TypeBoolean:
		z = "z.boolean()"
	case resource.TypeDateTime:
		z = "z.coerce.date()"
	case resource.TypeJSON:
		z = "z.unknown()"
	default: // string, text
		z = "z.string()"
	}
	if f.Nullable {
		z += ".optional()"
	}
	return z
}

// relationData feeds the include fragment template.
type relationData struct {
	naming.Forms
	MethodSuffix string // "User" or "Comments"
	IncludeField string // "user" or "comments"
}

const relationFragment = `  async getWith{{.MethodSuffix}}(id: string) {
    return prisma.{{.Camel}}.findUnique({ where: { id }, include: { {{.IncludeField}}: true } });
  }`

// relationArtifact emits the include fragment for one relation: a service
// method fetching the resource together with its related records.
func relationArtifact(forms naming.Forms, rel resource.Relation) (Artifact, error) {
	target, err := naming.ForResource(rel.Target)
	if err != nil {
		return Artifact{}, err
	}

	data := relationData{Forms: forms}
	switch rel.Cardinality {
	case resource.OneToMany, resource.ManyToMany:
		data.MethodSuffix = target.PascalPlural
		data.IncludeField = target.CamelPlural
	default: // to-one
		data.MethodSuffix = target.Pascal
		data.IncludeField = target.Camel
	}

	content, err := render("relation", relationFragment, data)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Path:      ServicePath(forms),
		Kind:      KindService,
		Merge:     MergeInsert,
		Content:   content,
		Resource:  forms.Snake,
		InsertKey: fmt.Sprintf("%s:rel:%s", forms.Snake, target.Snake),
		Anchor:    AnchorMethods,
	}, nil
}

// render executes a template over data. Templates are trusted literals, so
// parse errors indicate a bug and are returned wrapped.
func render(name, tmpl string, data any) (string, error) {
	t, err := template.New(name).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}
