package scaffold

import (
	"fmt"

	"github.com/armature-dev/armature/internal/naming"
)

const packageJSON = `{
  "name": "{{.Kebab}}",
  "version": "0.1.0",
  "private": true,
  "scripts": {
    "dev": "ts-node-dev --respawn src/app.ts",
    "build": "tsc",
    "typecheck": "tsc --noEmit"
  },
  "dependencies": {
    "@prisma/client": "^5.14.0",
    "express": "^4.19.2",
    "zod": "^3.23.8"
  },
  "devDependencies": {
    "@types/express": "^4.17.21",
    "@types/node": "^20.12.12",
    "prisma": "^5.14.0",
    "ts-node-dev": "^2.0.0",
    "typescript": "^5.4.5"
  }
}
`

const tsconfigJSON = `{
  "compilerOptions": {
    "target": "ES2022",
    "module": "commonjs",
    "moduleResolution": "node",
    "rootDir": "src",
    "outDir": "dist",
    "strict": true,
    "esModuleInterop": true,
    "skipLibCheck": true
  },
  "include": ["src"]
}
`

const appTS = `import express from 'express';
import routes from './routes';
import { errorHandler } from './middleware/errorHandler';

const app = express();

app.use(express.json());
app.use('/api', routes);
app.use(errorHandler);

const port = process.env.PORT ?? 3000;
app.listen(port, () => {
  console.log(` + "`listening on port ${port}`" + `);
});

export default app;
`

const routesIndexTS = `import { Router } from 'express';
// armature:imports

const router = Router();

// armature:mounts

export default router;
`

const schemaPrisma = `generator client {
  provider = "prisma-client-js"
}

datasource db {
  provider = "postgresql"
  url      = env("DATABASE_URL")
}

// armature:models
`

const errorHandlerTS = `import { Request, Response, NextFunction } from 'express';
import { AppError } from '../utils/errors';

export function errorHandler(err: Error, _req: Request, res: Response, _next: NextFunction) {
  if (err instanceof AppError) {
    res.status(err.statusCode).json({ error: { code: err.code, message: err.message } });
    return;
  }
  console.error(err);
  res.status(500).json({ error: { code: 'INTERNAL_ERROR', message: 'Internal server error' } });
}
`

// errorsTS is the runtime error taxonomy of the generated project. The
// status codes are part of its contract and are emitted verbatim.
const errorsTS = `export class AppError extends Error {
  constructor(
    message: string,
    public statusCode: number = 500,
    public code: string = 'INTERNAL_ERROR'
  ) {
    super(message);
    this.name = this.constructor.name;
    Error.captureStackTrace(this, this.constructor);
  }
}

export class NotFoundError extends AppError {
  constructor(message = 'Resource not found') {
    super(message, 404, 'NOT_FOUND');
  }
}

export class ValidationError extends AppError {
  constructor(message = 'Validation failed') {
    super(message, 400, 'VALIDATION_ERROR');
  }
}

export class UnauthorizedError extends AppError {
  constructor(message = 'Unauthorized') {
    super(message, 401, 'UNAUTHORIZED');
  }
}
`

// Project emits the base tree for a new project.
func Project(name string) ([]Artifact, error) {
	forms, err := naming.ForResource(name)
	if err != nil {
		return nil, err
	}

	pkg, err := render("package.json", packageJSON, forms)
	if err != nil {
		return nil, err
	}

	return []Artifact{
		{Path: "package.json", Kind: KindProject, Merge: MergeReplace, Content: pkg},
		{Path: "tsconfig.json", Kind: KindProject, Merge: MergeReplace, Content: tsconfigJSON},
		{Path: "prisma/schema.prisma", Kind: KindSchema, Merge: MergeReplace, Content: schemaPrisma},
		{Path: "src/utils/errors.ts", Kind: KindError, Merge: MergeReplace, Content: errorsTS},
		{Path: "src/middleware/errorHandler.ts", Kind: KindMiddleware, Merge: MergeReplace, Content: errorHandlerTS},
		{Path: "src/routes/index.ts", Kind: KindRoute, Merge: MergeReplace, Content: routesIndexTS},
		{Path: "src/app.ts", Kind: KindProject, Merge: MergeReplace, Content: appTS},
	}, nil
}

// MiddlewareKind selects one of the built-in middleware templates.
type MiddlewareKind string

const (
	MiddlewareAuth      MiddlewareKind = "auth"
	MiddlewareValidate  MiddlewareKind = "validate"
	MiddlewareRateLimit MiddlewareKind = "rateLimit"
	MiddlewareLogging   MiddlewareKind = "logging"
	MiddlewareCustom    MiddlewareKind = "custom"
)

const authMiddlewareTS = `import { Request, Response, NextFunction } from 'express';
import { UnauthorizedError } from '../utils/errors';

export function auth(req: Request, _res: Response, next: NextFunction) {
  const header = req.headers.authorization;
  if (!header || !header.startsWith('Bearer ')) {
    next(new UnauthorizedError('Missing bearer token'));
    return;
  }
  // TODO: verify the token against your identity provider
  next();
}
`

const validateMiddlewareTS = `import { Request, Response, NextFunction } from 'express';
import { ZodSchema } from 'zod';
import { ValidationError } from '../utils/errors';

export function validate(schema: ZodSchema) {
  return (req: Request, _res: Response, next: NextFunction) => {
    const result = schema.safeParse(req.body);
    if (!result.success) {
      next(new ValidationError(result.error.issues.map((i) => i.message).join('; ')));
      return;
    }
    req.body = result.data;
    next();
  };
}
`

// rateLimitMiddlewareTS keeps its counter table inside the generated
// project's runtime; the generator itself holds no such state.
const rateLimitMiddlewareTS = `import { Request, Response, NextFunction } from 'express';

const WINDOW_MS = 60_000;
const MAX_REQUESTS = 100;

const hits = new Map<string, { count: number; resetAt: number }>();

export function rateLimit(req: Request, res: Response, next: NextFunction) {
  const key = req.ip ?? 'unknown';
  const now = Date.now();
  const entry = hits.get(key);
  if (!entry || entry.resetAt <= now) {
    hits.set(key, { count: 1, resetAt: now + WINDOW_MS });
    next();
    return;
  }
  entry.count += 1;
  if (entry.count > MAX_REQUESTS) {
    res.status(429).json({ error: { code: 'RATE_LIMITED', message: 'Too many requests' } });
    return;
  }
  next();
}
`

const loggingMiddlewareTS = `import { Request, Response, NextFunction } from 'express';

export function logging(req: Request, res: Response, next: NextFunction) {
  const start = Date.now();
  res.on('finish', () => {
    console.log(` + "`${req.method} ${req.originalUrl} ${res.statusCode} ${Date.now() - start}ms`" + `);
  });
  next();
}
`

const customMiddlewareTS = `import { Request, Response, NextFunction } from 'express';

export function {{.Camel}}(_req: Request, _res: Response, next: NextFunction) {
  next();
}
`

// Middleware emits one middleware artifact. For MiddlewareCustom, name is
// the middleware's identifier; it is ignored for the built-in kinds.
func Middleware(kind MiddlewareKind, name string) (Artifact, error) {
	var content, file string
	switch kind {
	case MiddlewareAuth:
		content, file = authMiddlewareTS, "auth"
	case MiddlewareValidate:
		content, file = validateMiddlewareTS, "validate"
	case MiddlewareRateLimit:
		content, file = rateLimitMiddlewareTS, "rateLimit"
	case MiddlewareLogging:
		content, file = loggingMiddlewareTS, "logging"
	case MiddlewareCustom:
		forms, err := naming.ForResource(name)
		if err != nil {
			return Artifact{}, err
		}
		rendered, err := render("middleware:custom", customMiddlewareTS, forms)
		if err != nil {
			return Artifact{}, err
		}
		content, file = rendered, forms.Kebab
	default:
		return Artifact{}, fmt.Errorf("unknown middleware kind %q", kind)
	}

	return Artifact{
		Path:    "src/middleware/" + file + ".ts",
		Kind:    KindMiddleware,
		Merge:   MergeReplace,
		Content: content,
	}, nil
}

const serviceOnlyContainer = `export class {{.Pascal}}Service {
  // armature:methods
}

export const {{.Camel}}Service = new {{.Pascal}}Service();
`

const serviceOpFragment = `  async {{.Op}}(...args: unknown[]) {
    throw new Error('not implemented: {{.Op}}');
  }`

// Service emits a standalone service with stub operations, together with the
// error-type artifact the service contract depends on.
func Service(name string, ops []string) ([]Artifact, error) {
	forms, err := naming.ForResource(name)
	if err != nil {
		return nil, err
	}

	container, err := render("service-only", serviceOnlyContainer, forms)
	if err != nil {
		return nil, err
	}

	out := []Artifact{
		{Path: "src/utils/errors.ts", Kind: KindError, Merge: MergeReplace, Content: errorsTS},
		{Path: ServicePath(forms), Kind: KindService, Merge: MergeReplace, Content: container, Resource: forms.Snake},
	}

	for _, op := range ops {
		opForms, err := naming.ForResource(op)
		if err != nil {
			return nil, fmt.Errorf("operation %q: %w", op, err)
		}
		content, err := render("service-op", serviceOpFragment, struct{ Op string }{opForms.Camel})
		if err != nil {
			return nil, err
		}
		out = append(out, Artifact{
			Path:      ServicePath(forms),
			Kind:      KindService,
			Merge:     MergeInsert,
			Content:   content,
			Resource:  forms.Snake,
			InsertKey: forms.Snake + ":op:" + opForms.Camel,
			Anchor:    AnchorMethods,
		})
	}

	return out, nil
}
