package specialist

import (
	"context"
	"fmt"
	"strings"

	"github.com/armature-dev/armature/internal/catalog"
	"github.com/armature-dev/armature/internal/naming"
	"github.com/armature-dev/armature/internal/review"
	"github.com/armature-dev/armature/internal/scaffold"
	"github.com/armature-dev/armature/internal/task"
)

// handlerFor picks the specialized implementation for a catalog domain,
// falling back to a vocabulary-only handler for domains armature has no
// generator for.
func handlerFor(d catalog.Domain) Handler {
	switch d.Name {
	case "schema":
		return &schemaHandler{domainInfo{d}}
	case "types":
		return &typesHandler{domainInfo{d}}
	case "api":
		return &apiHandler{domainInfo{d}}
	case "infra":
		return &infraHandler{domainInfo{d}}
	case "review":
		return &reviewHandler{domainInfo{d}}
	default:
		return &vocabHandler{domainInfo{d}}
	}
}

// domainInfo carries the catalog entry and supplies the shared Domain and
// Match behavior.
type domainInfo struct {
	spec catalog.Domain
}

func (d domainInfo) Domain() string { return d.spec.Name }

func (d domainInfo) Match(n *task.Node) int { return vocabScore(d.spec.Vocabulary, n) }

func needDescriptor(n *task.Node, env *Env) error {
	if env == nil || env.Descriptor == nil {
		return fmt.Errorf("task %s: no resource descriptor in scope", n.ID)
	}
	return nil
}

// schemaHandler owns data modeling: it emits the Prisma model fragment.
type schemaHandler struct{ domainInfo }

func (h *schemaHandler) Execute(_ context.Context, n *task.Node, env *Env) (*Result, error) {
	if err := needDescriptor(n, env); err != nil {
		return nil, err
	}
	model, err := scaffold.Model(env.Descriptor)
	if err != nil {
		return nil, err
	}
	return &Result{
		TaskID:    n.ID,
		Domain:    h.Domain(),
		Summary:   fmt.Sprintf("schema fragment for %s", env.Descriptor.Name),
		Artifacts: []scaffold.Artifact{model},
	}, nil
}

func (h *schemaHandler) Review(env *Env) []review.Finding {
	const schemaFile = "prisma/schema.prisma"
	content, ok, err := env.Tree.Read(schemaFile)
	if err != nil || !ok {
		return []review.Finding{{
			Domain: h.Domain(), Severity: review.SeverityHigh,
			File: schemaFile, Message: "prisma schema is missing",
		}}
	}

	var findings []review.Finding
	for _, res := range env.Resources {
		forms, err := naming.ForResource(res)
		if err != nil {
			continue
		}
		if !strings.Contains(content, "model "+forms.Pascal+" {") {
			findings = append(findings, review.Finding{
				Domain: h.Domain(), Severity: review.SeverityHigh,
				File:    schemaFile,
				Message: fmt.Sprintf("model %s is not defined in the schema", forms.Pascal),
			})
		}
	}
	if len(env.Resources) > 0 && !strings.Contains(content, "updatedAt") {
		findings = append(findings, review.Finding{
			Domain: h.Domain(), Severity: review.SeverityLow,
			File: schemaFile, Message: "models carry no updatedAt timestamps",
		})
	}
	return findings
}

// typesHandler owns validation contracts: the zod schema container plus the
// create/update fragments.
type typesHandler struct{ domainInfo }

func (h *typesHandler) Execute(_ context.Context, n *task.Node, env *Env) (*Result, error) {
	if err := needDescriptor(n, env); err != nil {
		return nil, err
	}

	artifacts, err := scaffold.Validation(env.Descriptor, env.Capabilities)
	if err != nil {
		return nil, err
	}
	expanded, err := scaffold.Expand(env.Descriptor, env.Capabilities)
	if err != nil {
		return nil, err
	}
	for _, a := range expanded {
		if a.Kind == scaffold.KindSchema {
			artifacts = append(artifacts, a)
		}
	}

	return &Result{
		TaskID:    n.ID,
		Domain:    h.Domain(),
		Summary:   fmt.Sprintf("validation contracts for %s", env.Descriptor.Name),
		Artifacts: artifacts,
	}, nil
}

func (h *typesHandler) Review(env *Env) []review.Finding {
	var findings []review.Finding
	for _, res := range env.Resources {
		forms, err := naming.ForResource(res)
		if err != nil {
			continue
		}
		routes, haveRoutes, _ := env.Tree.Read(scaffold.RoutesPath(forms))
		_, haveValidation, _ := env.Tree.Read(scaffold.ValidationPath(forms))
		switch {
		case haveRoutes && strings.Contains(routes, "validate(") && !haveValidation:
			findings = append(findings, review.Finding{
				Domain: h.Domain(), Severity: review.SeverityHigh,
				File:    scaffold.ValidationPath(forms),
				Message: fmt.Sprintf("routes for %s use validate() but the schema file is missing", res),
			})
		case haveRoutes && !haveValidation:
			findings = append(findings, review.Finding{
				Domain: h.Domain(), Severity: review.SeverityLow,
				File:    scaffold.ValidationPath(forms),
				Message: fmt.Sprintf("no validation schemas for %s", res),
			})
		}
	}
	return findings
}

// apiHandler owns the three-layer web surface: service, controller and route
// containers plus their capability fragments and registrar lines.
type apiHandler struct{ domainInfo }

func (h *apiHandler) Execute(_ context.Context, n *task.Node, env *Env) (*Result, error) {
	if err := needDescriptor(n, env); err != nil {
		return nil, err
	}

	artifacts, err := scaffold.ResourceFiles(env.Descriptor, env.Capabilities)
	if err != nil {
		return nil, err
	}
	expanded, err := scaffold.Expand(env.Descriptor, env.Capabilities)
	if err != nil {
		return nil, err
	}
	for _, a := range expanded {
		if a.Kind != scaffold.KindSchema {
			artifacts = append(artifacts, a)
		}
	}

	return &Result{
		TaskID:    n.ID,
		Domain:    h.Domain(),
		Summary:   fmt.Sprintf("routes, controller and service for %s", env.Descriptor.Name),
		Artifacts: artifacts,
	}, nil
}

func (h *apiHandler) Review(env *Env) []review.Finding {
	const indexFile = "src/routes/index.ts"
	index, ok, _ := env.Tree.Read(indexFile)
	if !ok {
		return []review.Finding{{
			Domain: h.Domain(), Severity: review.SeverityHigh,
			File: indexFile, Message: "route index is missing",
		}}
	}

	var findings []review.Finding
	for _, res := range env.Resources {
		forms, err := naming.ForResource(res)
		if err != nil {
			continue
		}
		mount := fmt.Sprintf("router.use('%s', %sRoutes);", forms.RoutePath, forms.Camel)
		if _, haveRoutes, _ := env.Tree.Read(scaffold.RoutesPath(forms)); !haveRoutes {
			continue // nothing to mount
		}
		if !strings.Contains(index, mount) {
			findings = append(findings, review.Finding{
				Domain: h.Domain(), Severity: review.SeverityHigh,
				File:    indexFile,
				Message: fmt.Sprintf("routes for %s are not registered in the route index", res),
			})
		}
		if _, haveController, _ := env.Tree.Read(scaffold.ControllerPath(forms)); !haveController {
			findings = append(findings, review.Finding{
				Domain: h.Domain(), Severity: review.SeverityMed,
				File:    scaffold.ControllerPath(forms),
				Message: fmt.Sprintf("controller for %s is missing", res),
			})
		}
	}
	return findings
}

// infraHandler owns middleware. The task description selects which kinds to
// emit; logging is the default.
type infraHandler struct{ domainInfo }

func (h *infraHandler) Execute(_ context.Context, n *task.Node, _ *Env) (*Result, error) {
	text := strings.ToLower(n.Description)
	var kinds []scaffold.MiddlewareKind
	for _, k := range []struct {
		word string
		kind scaffold.MiddlewareKind
	}{
		{"auth", scaffold.MiddlewareAuth},
		{"validat", scaffold.MiddlewareValidate},
		{"rate", scaffold.MiddlewareRateLimit},
		{"logg", scaffold.MiddlewareLogging},
	} {
		if strings.Contains(text, k.word) {
			kinds = append(kinds, k.kind)
		}
	}
	if len(kinds) == 0 {
		kinds = []scaffold.MiddlewareKind{scaffold.MiddlewareLogging}
	}

	var artifacts []scaffold.Artifact
	var names []string
	for _, k := range kinds {
		a, err := scaffold.Middleware(k, "")
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
		names = append(names, string(k))
	}

	return &Result{
		TaskID:    n.ID,
		Domain:    h.Domain(),
		Summary:   "middleware: " + strings.Join(names, ", "),
		Artifacts: artifacts,
	}, nil
}

func (h *infraHandler) Review(env *Env) []review.Finding {
	var findings []review.Finding
	if _, ok, _ := env.Tree.Read("src/middleware/errorHandler.ts"); !ok {
		findings = append(findings, review.Finding{
			Domain: h.Domain(), Severity: review.SeverityMed,
			File: "src/middleware/errorHandler.ts", Message: "error handler middleware is missing",
		})
	}
	if app, ok, _ := env.Tree.Read("src/app.ts"); ok && !strings.Contains(app, "errorHandler") {
		findings = append(findings, review.Finding{
			Domain: h.Domain(), Severity: review.SeverityLow,
			File: "src/app.ts", Message: "app does not install the error handler",
		})
	}
	return findings
}

// reviewHandler owns cross-domain consistency checks; its Execute simply
// reports its own findings.
type reviewHandler struct{ domainInfo }

func (h *reviewHandler) Execute(_ context.Context, n *task.Node, env *Env) (*Result, error) {
	return &Result{
		TaskID:   n.ID,
		Domain:   h.Domain(),
		Summary:  "cross-domain consistency review",
		Findings: h.Review(env),
	}, nil
}

func (h *reviewHandler) Review(env *Env) []review.Finding {
	index, ok, _ := env.Tree.Read("src/routes/index.ts")
	if !ok {
		return nil
	}

	// Duplicate registrations defeat the idempotent-insert contract.
	var findings []review.Finding
	seen := map[string]int{}
	for i, line := range strings.Split(index, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "router.use(") {
			continue
		}
		if first, dup := seen[line]; dup {
			findings = append(findings, review.Finding{
				Domain: h.Domain(), Severity: review.SeverityHigh,
				File: "src/routes/index.ts", Line: i + 1,
				Message: fmt.Sprintf("duplicate route registration (first at line %d): %s", first, line),
			})
			continue
		}
		seen[line] = i + 1
	}
	return findings
}

// vocabHandler serves custom catalog domains armature cannot generate for:
// it matches by vocabulary and reports the work as manual.
type vocabHandler struct{ domainInfo }

func (h *vocabHandler) Execute(_ context.Context, n *task.Node, _ *Env) (*Result, error) {
	return &Result{
		TaskID:  n.ID,
		Domain:  h.Domain(),
		Summary: fmt.Sprintf("no generator for domain %s; complete manually: %s", h.Domain(), n.Description),
	}, nil
}

func (h *vocabHandler) Review(_ *Env) []review.Finding { return nil }

// generalistHandler is the fallback owner for tasks nothing else matches.
type generalistHandler struct{ name string }

func (h *generalistHandler) Domain() string { return h.name }

func (h *generalistHandler) Match(_ *task.Node) int { return 0 }

func (h *generalistHandler) Review(_ *Env) []review.Finding { return nil }

func (h *generalistHandler) Execute(_ context.Context, n *task.Node, _ *Env) (*Result, error) {
	return &Result{
		TaskID:  n.ID,
		Domain:  h.name,
		Summary: "orchestration only; no artifacts",
	}, nil
}
