package scaffold

import (
	"strings"
	"testing"

	"github.com/armature-dev/armature/internal/resource"
)

func TestResourceFiles_ContainersAndRegistrar(t *testing.T) {
	artifacts, err := ResourceFiles(postDescriptor(), []Capability{CapList, CapCreate})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// service, controller, routes containers + import + mount
	if len(artifacts) != 5 {
		t.Fatalf("expected 5 artifacts, got %d", len(artifacts))
	}

	byPath := map[string]Artifact{}
	for _, a := range artifacts {
		if a.Merge == MergeReplace {
			byPath[a.Path] = a
		}
	}

	svc := byPath["src/services/post.service.ts"]
	if !strings.Contains(svc.Content, "export class PostService") {
		t.Errorf("service container:\n%s", svc.Content)
	}
	if !strings.Contains(svc.Content, "// armature:methods") {
		t.Error("service container lost its anchor")
	}

	routes := byPath["src/routes/post.routes.ts"]
	if !strings.Contains(routes.Content, "import { validate } from '../middleware/validate';") {
		t.Errorf("routes container should import validate when create is requested:\n%s", routes.Content)
	}
	if !strings.Contains(routes.Content, "createPostSchema") {
		t.Errorf("routes container should import the create schema:\n%s", routes.Content)
	}

	// Registrar lines target the shared index and carry distinct keys.
	var mount Artifact
	for _, a := range artifacts {
		if a.InsertKey == "post:registrar-mount" {
			mount = a
		}
	}
	if mount.Path != "src/routes/index.ts" {
		t.Fatalf("mount artifact path: %s", mount.Path)
	}
	if mount.Content != "router.use('/posts', postRoutes);" {
		t.Errorf("mount line: %q", mount.Content)
	}
}

func TestResourceFiles_NoValidationImports(t *testing.T) {
	artifacts, err := ResourceFiles(postDescriptor(), []Capability{CapList, CapGetByID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, a := range artifacts {
		if a.Path == "src/routes/post.routes.ts" && strings.Contains(a.Content, "validate") {
			t.Errorf("read-only capability set should not import validate:\n%s", a.Content)
		}
	}
}

func TestValidation_OnlyForMutatingCapabilities(t *testing.T) {
	none, err := Validation(postDescriptor(), []Capability{CapList, CapGetByID, CapDelete})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no validation artifacts for read/delete set, got %d", len(none))
	}

	some, err := Validation(postDescriptor(), []Capability{CapCreate})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(some) != 2 {
		t.Fatalf("expected schema container + validate middleware, got %d", len(some))
	}
	if some[0].Path != "src/validation/post.schema.ts" {
		t.Errorf("schema container path: %s", some[0].Path)
	}
	if some[1].Path != "src/middleware/validate.ts" {
		t.Errorf("middleware path: %s", some[1].Path)
	}
}

func TestModel_PostScenario(t *testing.T) {
	a, err := Model(postDescriptor())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a.Path != "prisma/schema.prisma" || a.Merge != MergeInsert {
		t.Errorf("model artifact should insert into the schema aggregator, got %s %s", a.Path, a.Merge)
	}
	if a.InsertKey != "post:model" {
		t.Errorf("insert key: %s", a.InsertKey)
	}

	for _, want := range []string{
		"model Post {",
		"@id @default(uuid())",
		"title",
		"content",
		"user",
		"@relation(fields: [userId], references: [id])",
		"userId",
		"@default(now())",
		"@updatedAt",
	} {
		if !strings.Contains(a.Content, want) {
			t.Errorf("model missing %q:\n%s", want, a.Content)
		}
	}
}

func TestModel_FieldNamesKeepDeclaredNumber(t *testing.T) {
	notes, err := resource.ParseField("notes:text?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tags, err := resource.ParseField("tags:json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a, err := Model(&resource.Descriptor{Name: "event", Fields: []resource.Field{notes, tags}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"notes", "tags"} {
		if !strings.Contains(a.Content, want) {
			t.Errorf("model missing field %q:\n%s", want, a.Content)
		}
	}
	for _, line := range strings.Split(a.Content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "note ") || strings.HasPrefix(trimmed, "tag ") {
			t.Errorf("field was singularized: %q", line)
		}
	}
}

func TestModel_ToManyRelation(t *testing.T) {
	desc := &resource.Descriptor{
		Name:      "user",
		Relations: []resource.Relation{{Target: "post", Cardinality: resource.OneToMany}},
	}
	a, err := Model(desc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(a.Content, "posts") || !strings.Contains(a.Content, "Post[]") {
		t.Errorf("to-many relation should emit an array field:\n%s", a.Content)
	}
}

func TestProject_BaseTree(t *testing.T) {
	artifacts, err := Project("blog-api")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	paths := map[string]bool{}
	for _, a := range artifacts {
		if a.Merge != MergeReplace {
			t.Errorf("%s: base artifacts replace whole files, got %s", a.Path, a.Merge)
		}
		paths[a.Path] = true
	}
	for _, want := range []string{
		"package.json",
		"tsconfig.json",
		"prisma/schema.prisma",
		"src/utils/errors.ts",
		"src/middleware/errorHandler.ts",
		"src/routes/index.ts",
		"src/app.ts",
	} {
		if !paths[want] {
			t.Errorf("missing base artifact %s", want)
		}
	}

	// The registrar and schema aggregators must carry their anchors.
	for _, a := range artifacts {
		switch a.Path {
		case "src/routes/index.ts":
			if !strings.Contains(a.Content, "// armature:imports") || !strings.Contains(a.Content, "// armature:mounts") {
				t.Error("route index lost its anchors")
			}
		case "prisma/schema.prisma":
			if !strings.Contains(a.Content, "// armature:models") {
				t.Error("prisma schema lost its anchor")
			}
		}
	}
}

func TestProject_ErrorTaxonomy(t *testing.T) {
	artifacts, err := Project("blog")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var errorsFile string
	for _, a := range artifacts {
		if a.Path == "src/utils/errors.ts" {
			errorsFile = a.Content
		}
	}

	for _, want := range []string{
		"class AppError extends Error",
		"super(message, 404, 'NOT_FOUND');",
		"super(message, 400, 'VALIDATION_ERROR');",
		"super(message, 401, 'UNAUTHORIZED');",
	} {
		if !strings.Contains(errorsFile, want) {
			t.Errorf("error taxonomy missing %q", want)
		}
	}
}

func TestMiddleware_Kinds(t *testing.T) {
	for kind, wantPath := range map[MiddlewareKind]string{
		MiddlewareAuth:      "src/middleware/auth.ts",
		MiddlewareValidate:  "src/middleware/validate.ts",
		MiddlewareRateLimit: "src/middleware/rateLimit.ts",
		MiddlewareLogging:   "src/middleware/logging.ts",
	} {
		a, err := Middleware(kind, "")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", kind, err)
		}
		if a.Path != wantPath {
			t.Errorf("%s: path %s, want %s", kind, a.Path, wantPath)
		}
	}

	custom, err := Middleware(MiddlewareCustom, "requestId")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if custom.Path != "src/middleware/request-id.ts" {
		t.Errorf("custom path: %s", custom.Path)
	}
	if !strings.Contains(custom.Content, "export function requestId(") {
		t.Errorf("custom middleware:\n%s", custom.Content)
	}

	if _, err := Middleware("cors", ""); err == nil {
		t.Error("expected error for unknown middleware kind")
	}
}

func TestMiddleware_RateLimitStateIsTemplateText(t *testing.T) {
	a, err := Middleware(MiddlewareRateLimit, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(a.Content, "new Map<string,") {
		t.Errorf("rate limit table should live in the generated source:\n%s", a.Content)
	}
}

func TestService_Standalone(t *testing.T) {
	artifacts, err := Service("mailer", []string{"sendWelcome", "sendReset"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// errors file + container + two op stubs
	if len(artifacts) != 4 {
		t.Fatalf("expected 4 artifacts, got %d", len(artifacts))
	}
	if artifacts[0].Path != "src/utils/errors.ts" {
		t.Errorf("first artifact should be the error taxonomy, got %s", artifacts[0].Path)
	}
	if artifacts[1].Path != "src/services/mailer.service.ts" {
		t.Errorf("container path: %s", artifacts[1].Path)
	}
	if !strings.Contains(artifacts[2].Content, "async sendWelcome(") {
		t.Errorf("op stub:\n%s", artifacts[2].Content)
	}
	if artifacts[3].InsertKey != "mailer:op:sendReset" {
		t.Errorf("op insert key: %s", artifacts[3].InsertKey)
	}
}
