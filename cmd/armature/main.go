package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/armature-dev/armature/internal/catalog"
	"github.com/armature-dev/armature/internal/compose"
	"github.com/armature-dev/armature/internal/decompose"
	"github.com/armature-dev/armature/internal/hook"
	"github.com/armature-dev/armature/internal/manifest"
	"github.com/armature-dev/armature/internal/resource"
	"github.com/armature-dev/armature/internal/review"
	"github.com/armature-dev/armature/internal/runner"
	"github.com/armature-dev/armature/internal/scaffold"
	"github.com/armature-dev/armature/internal/specialist"
	"github.com/armature-dev/armature/internal/task"
	"github.com/armature-dev/armature/internal/ui"
	"github.com/spf13/cobra"
)

var (
	flagDir         string
	flagJSON        bool
	flagCatalog     string
	flagMaxParallel int
	flagNoHook      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "armature",
		Short: "Generate mutually consistent scaffolding for Express/Prisma APIs",
		Long: `Armature scaffolds three-layer TypeScript web APIs: routes, controllers,
services, validation schemas and Prisma models that always agree on naming
and wiring. It also decomposes feature requests into a dependency-ordered
task plan routed to domain specialists, and reviews a project for drift
between its layers.`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&flagDir, "dir", "d", ".", "Project root directory")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Machine-readable JSON output")
	rootCmd.PersistentFlags().StringVar(&flagCatalog, "catalog", "", "Domain catalog YAML (default: .armature/catalog.yaml)")
	rootCmd.PersistentFlags().IntVar(&flagMaxParallel, "max-parallel", 4, "Max concurrent specialist executions")
	rootCmd.PersistentFlags().BoolVar(&flagNoHook, "no-hook", false, "Skip post-write typecheck hook")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(reviewCmd())
	rootCmd.AddCommand(statusCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.BoldRed("Error:"), err)
		os.Exit(1)
	}
}

// loadCatalog resolves the domain catalog: the --catalog path if given,
// else the project's .armature/catalog.yaml, else the built-in defaults.
func loadCatalog() (*catalog.Catalog, error) {
	path := flagCatalog
	if path == "" {
		path = flagDir + "/.armature/catalog.yaml"
	}
	return catalog.Load(path)
}

// openProject loads the manifest and builds a composer over the project
// tree, sharing the manifest's insertion index.
func openProject() (*manifest.Manifest, *compose.Composer, error) {
	if !manifest.Exists(flagDir) {
		return nil, nil, fmt.Errorf("no armature project in %s (run armature init first)", flagDir)
	}
	m, err := manifest.Load(flagDir)
	if err != nil {
		return nil, nil, err
	}
	comp := compose.New(compose.NewDiskTree(flagDir), m.Index)
	return m, comp, nil
}

// runHook runs the post-write typecheck and prints its findings. Hook
// failures never undo writes; they only surface.
func runHook(ctx context.Context) {
	if flagNoHook {
		return
	}
	r := hook.NewRunner(flagDir)
	if !r.Enabled() {
		return
	}
	res := r.TypeCheck(ctx)
	if res.Passed {
		fmt.Fprintf(os.Stderr, "  %s typecheck passed\n", ui.Green("✓"))
		return
	}
	fmt.Fprintf(os.Stderr, "  %s typecheck reported issues:\n", ui.Yellow("⚠"))
	for _, f := range res.Findings {
		fmt.Fprintf(os.Stderr, "    %s %s %s\n", ui.Severity(string(f.Severity)), ui.Dim(f.Location()), f.Message)
	}
	if len(res.Findings) == 0 && res.Err != nil {
		// Nothing parseable; relay the raw compiler output instead.
		pw := ui.NewPrefixWriter("typecheck", os.Stderr, &sync.Mutex{})
		fmt.Fprint(pw, res.Output)
		pw.Flush()
		fmt.Fprintf(os.Stderr, "    %v\n", res.Err)
	}
}

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <project-name>",
		Short: "Create a new armature-managed project skeleton",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if manifest.Exists(flagDir) {
				return fmt.Errorf("project already initialized in %s", flagDir)
			}

			artifacts, err := scaffold.Project(name)
			if err != nil {
				return err
			}

			m, err := manifest.New(flagDir, name)
			if err != nil {
				return err
			}
			comp := compose.New(compose.NewDiskTree(flagDir), m.Index)
			changed, err := comp.Compose(artifacts)
			if err != nil {
				return err
			}
			if err := m.Save(); err != nil {
				return err
			}

			if flagJSON {
				return outputJSON(map[string]any{"project": name, "files": changed})
			}
			fmt.Printf("%s %s in %s\n", ui.BoldGreen("Initialized"), ui.Bold(name), flagDir)
			for _, p := range changed {
				fmt.Printf("  %s %s\n", ui.Green("+"), p)
			}
			return nil
		},
	}
	return cmd
}

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a resource, middleware or service to the project",
	}
	cmd.AddCommand(addResourceCmd())
	cmd.AddCommand(addModelCmd())
	cmd.AddCommand(addRouteCmd())
	cmd.AddCommand(addMiddlewareCmd())
	cmd.AddCommand(addServiceCmd())
	return cmd
}

// buildDescriptor assembles and validates a descriptor from flag specs.
func buildDescriptor(name string, fields, relations []string) (*resource.Descriptor, error) {
	desc := &resource.Descriptor{Name: name}
	for _, spec := range fields {
		f, err := resource.ParseField(spec)
		if err != nil {
			return nil, err
		}
		desc.Fields = append(desc.Fields, f)
	}
	for _, spec := range relations {
		r, err := resource.ParseRelation(spec)
		if err != nil {
			return nil, err
		}
		desc.Relations = append(desc.Relations, r)
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return desc, nil
}

func addModelCmd() *cobra.Command {
	var (
		flagFields    []string
		flagRelations []string
	)

	cmd := &cobra.Command{
		Use:   "model <name>",
		Short: "Scaffold only the Prisma model fragment for a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, comp, err := openProject()
			if err != nil {
				return err
			}
			desc, err := buildDescriptor(args[0], flagFields, flagRelations)
			if err != nil {
				return err
			}

			model, err := scaffold.Model(desc)
			if err != nil {
				return err
			}
			changed, err := comp.Compose([]scaffold.Artifact{model})
			if err != nil {
				return err
			}
			if err := m.AddResource(desc); err != nil {
				return err
			}

			if flagJSON {
				return outputJSON(map[string]any{"model": desc.Name, "files": changed})
			}
			fmt.Printf("%s model %s\n", ui.BoldGreen("Scaffolded"), ui.Bold(desc.Name))
			for _, p := range changed {
				fmt.Printf("  %s %s\n", ui.Green("~"), p)
			}
			fmt.Printf("%s armature add route %s\n", ui.Dim("Next:"), desc.Name)
			runHook(cmd.Context())
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&flagFields, "field", "f", nil, "Field spec name:type (markers: ? nullable, ! unique)")
	cmd.Flags().StringArrayVarP(&flagRelations, "relation", "r", nil, "Relation spec target:cardinality")

	return cmd
}

func addRouteCmd() *cobra.Command {
	var flagCaps []string

	cmd := &cobra.Command{
		Use:   "route <name>",
		Short: "Scaffold routes, controller, service and validation for a resource",
		Long: `Scaffolds the web surface for a resource without touching its model.
The field set comes from the recorded model (armature add model) when one
exists, so validation schemas agree with the persisted shape.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, comp, err := openProject()
			if err != nil {
				return err
			}

			desc, ok := m.Resource(args[0])
			if !ok {
				desc = &resource.Descriptor{Name: args[0]}
				if err := desc.Validate(); err != nil {
					return err
				}
			}

			caps := scaffold.AllCapabilities
			if len(flagCaps) > 0 {
				caps, err = scaffold.ParseCapabilities(flagCaps)
				if err != nil {
					return err
				}
			}

			var artifacts []scaffold.Artifact
			containers, err := scaffold.ResourceFiles(desc, caps)
			if err != nil {
				return err
			}
			artifacts = append(artifacts, containers...)
			validation, err := scaffold.Validation(desc, caps)
			if err != nil {
				return err
			}
			artifacts = append(artifacts, validation...)
			fragments, err := scaffold.Expand(desc, caps)
			if err != nil {
				return err
			}
			artifacts = append(artifacts, fragments...)

			changed, err := comp.Compose(artifacts)
			if err != nil {
				return err
			}
			if err := m.AddResource(desc); err != nil {
				return err
			}

			if flagJSON {
				return outputJSON(map[string]any{"resource": desc.Name, "files": changed})
			}
			fmt.Printf("%s routes for %s\n", ui.BoldGreen("Scaffolded"), ui.Bold(desc.Name))
			for _, p := range changed {
				fmt.Printf("  %s %s\n", ui.Green("~"), p)
			}
			runHook(cmd.Context())
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&flagCaps, "cap", nil, "Capabilities (list,getById,create,update,delete; default all)")

	return cmd
}

func addResourceCmd() *cobra.Command {
	var (
		flagFields    []string
		flagRelations []string
		flagCaps      []string
	)

	cmd := &cobra.Command{
		Use:   "resource <name>",
		Short: "Scaffold routes, controller, service, validation and model for a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, comp, err := openProject()
			if err != nil {
				return err
			}

			desc, err := buildDescriptor(args[0], flagFields, flagRelations)
			if err != nil {
				return err
			}

			caps := scaffold.AllCapabilities
			if len(flagCaps) > 0 {
				caps, err = scaffold.ParseCapabilities(flagCaps)
				if err != nil {
					return err
				}
			}

			var artifacts []scaffold.Artifact
			model, err := scaffold.Model(desc)
			if err != nil {
				return err
			}
			artifacts = append(artifacts, model)

			containers, err := scaffold.ResourceFiles(desc, caps)
			if err != nil {
				return err
			}
			artifacts = append(artifacts, containers...)

			validation, err := scaffold.Validation(desc, caps)
			if err != nil {
				return err
			}
			artifacts = append(artifacts, validation...)

			fragments, err := scaffold.Expand(desc, caps)
			if err != nil {
				return err
			}
			artifacts = append(artifacts, fragments...)

			changed, err := comp.Compose(artifacts)
			if err != nil {
				return err
			}
			if err := m.AddResource(desc); err != nil {
				return err
			}

			if flagJSON {
				return outputJSON(map[string]any{"resource": desc.Name, "files": changed})
			}
			fmt.Printf("%s resource %s\n", ui.BoldGreen("Scaffolded"), ui.Bold(desc.Name))
			for _, p := range changed {
				fmt.Printf("  %s %s\n", ui.Green("~"), p)
			}
			runHook(cmd.Context())
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&flagFields, "field", "f", nil, "Field spec name:type (markers: ? nullable, ! unique)")
	cmd.Flags().StringArrayVarP(&flagRelations, "relation", "r", nil, "Relation spec target:cardinality")
	cmd.Flags().StringSliceVar(&flagCaps, "cap", nil, "Capabilities (list,getById,create,update,delete; default all)")

	return cmd
}

func addMiddlewareCmd() *cobra.Command {
	var flagName string

	cmd := &cobra.Command{
		Use:   "middleware <kind>",
		Short: "Generate a middleware file (auth, validate, rateLimit, logging, custom)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, comp, err := openProject()
			if err != nil {
				return err
			}

			a, err := scaffold.Middleware(scaffold.MiddlewareKind(args[0]), flagName)
			if err != nil {
				return err
			}
			changed, err := comp.Compose([]scaffold.Artifact{a})
			if err != nil {
				return err
			}
			if err := m.Save(); err != nil {
				return err
			}

			if flagJSON {
				return outputJSON(map[string]any{"middleware": args[0], "files": changed})
			}
			for _, p := range changed {
				fmt.Printf("  %s %s\n", ui.Green("+"), p)
			}
			runHook(cmd.Context())
			return nil
		},
	}

	cmd.Flags().StringVar(&flagName, "name", "", "File name for custom middleware")

	return cmd
}

func addServiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service <name> [operations...]",
		Short: "Generate a standalone service class with operation stubs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, comp, err := openProject()
			if err != nil {
				return err
			}

			artifacts, err := scaffold.Service(args[0], args[1:])
			if err != nil {
				return err
			}
			changed, err := comp.Compose(artifacts)
			if err != nil {
				return err
			}
			if err := m.Save(); err != nil {
				return err
			}

			if flagJSON {
				return outputJSON(map[string]any{"service": args[0], "files": changed})
			}
			fmt.Printf("%s service %s\n", ui.BoldGreen("Scaffolded"), ui.Bold(args[0]))
			for _, p := range changed {
				fmt.Printf("  %s %s\n", ui.Green("~"), p)
			}
			runHook(cmd.Context())
			return nil
		},
	}
	return cmd
}

func planCmd() *cobra.Command {
	var (
		flagExecute bool
		flagQuiet   bool
	)

	cmd := &cobra.Command{
		Use:   "plan <feature request>",
		Short: "Decompose a feature request into a routed task plan",
		Long: `Decomposes a free-form feature request into a dependency-ordered task
graph, routes each task to its owning specialist domain, and prints the
plan. With -x the plan is executed: independent tasks run concurrently
and their artifacts are composed into the project.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request := strings.Join(args, " ")

			cat, err := loadCatalog()
			if err != nil {
				return err
			}
			plan, err := decompose.Decompose(request, cat)
			if err != nil {
				return err
			}

			reg := specialist.NewRegistry(cat)
			routed, err := reg.RouteAll(plan.Graph)
			if err != nil {
				return err
			}
			plan.Graph = routed
			if plan.Order, err = task.TopoSort(routed); err != nil {
				return err
			}
			if plan.Waves, err = task.Waves(routed); err != nil {
				return err
			}

			if !flagExecute {
				if flagJSON {
					return outputJSON(planView(plan))
				}
				printPlan(plan)
				return nil
			}

			m, comp, err := openProject()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				fmt.Fprintf(os.Stderr, "\n%s\n", ui.Yellow("Received interrupt, cancelling..."))
				cancel()
			}()

			desc, ok := m.Resource(plan.Subject)
			if !ok {
				desc = &resource.Descriptor{Name: plan.Subject}
			}
			env := &specialist.Env{
				Descriptor:   desc,
				Capabilities: scaffold.AllCapabilities,
				Tree:         compose.NewDiskTree(flagDir),
				Resources:    m.ResourceNames(),
			}

			if !flagJSON {
				ui.PrintLogo()
				printPlan(plan)
			}

			run := runner.New(reg, comp, env, runner.Config{
				MaxParallel: flagMaxParallel,
				Quiet:       flagQuiet || flagJSON,
			})
			summary, runErr := run.Run(ctx, routed)

			if saveErr := m.AddResource(desc); saveErr != nil && runErr == nil {
				runErr = saveErr
			}

			if flagJSON {
				if err := outputJSON(summary); err != nil {
					return err
				}
				return runErr
			}

			fmt.Printf("\n%s %d completed, %d failed, %d skipped\n",
				ui.BoldCyan("Run finished:"), summary.Completed, summary.Failed, summary.Skipped)
			ids := make([]string, 0, len(summary.Outcomes))
			for id := range summary.Outcomes {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				o := summary.Outcomes[id]
				detail := o.Summary
				if o.Error != "" {
					detail = o.Error
				}
				fmt.Printf("  %s %s %s\n", ui.StatusIcon(string(o.Status)), ui.TaskPrefix(id), detail)
			}
			if summary.Report != nil && summary.Report.Total() > 0 {
				printReport(summary.Report)
			}
			if runErr == nil {
				runHook(ctx)
			}
			return runErr
		},
	}

	cmd.Flags().BoolVarP(&flagExecute, "execute", "x", false, "Execute the plan after routing")
	cmd.Flags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress per-task progress output")

	return cmd
}

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Run every specialist review over the project and aggregate findings",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := openProject()
			if err != nil {
				return err
			}
			cat, err := loadCatalog()
			if err != nil {
				return err
			}

			env := &specialist.Env{
				Tree:      compose.NewDiskTree(flagDir),
				Resources: m.ResourceNames(),
			}

			reg := specialist.NewRegistry(cat)
			var sets [][]review.Finding
			for _, h := range reg.Handlers() {
				if fs := h.Review(env); len(fs) > 0 {
					sets = append(sets, fs)
				}
			}
			if !flagNoHook {
				r := hook.NewRunner(flagDir)
				if res := r.TypeCheck(cmd.Context()); len(res.Findings) > 0 {
					sets = append(sets, res.Findings)
				}
				if res := r.Lint(cmd.Context()); len(res.Findings) > 0 {
					sets = append(sets, res.Findings)
				}
			}

			report := review.Aggregate(sets)
			if flagJSON {
				return outputJSON(report)
			}
			if report.Total() == 0 {
				fmt.Printf("%s no findings\n", ui.BoldGreen("✓"))
				return nil
			}
			printReport(report)
			return nil
		},
	}
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what armature manages in this project",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := openProject()
			if err != nil {
				return err
			}

			if flagJSON {
				return outputJSON(m)
			}

			fmt.Printf("%s %s\n", ui.BoldCyan("Project:"), ui.Bold(m.ProjectName))
			names := m.ResourceNames()
			fmt.Printf("Resources: %s\n", ui.Bold(len(names)))
			for _, name := range names {
				d, _ := m.Resource(name)
				fmt.Printf("  %s %s %s\n", ui.Green("•"), ui.BoldMagenta(name),
					ui.Dim(fmt.Sprintf("(%d fields, %d relations)", len(d.Fields), len(d.Relations))))
			}
			return nil
		},
	}
	return cmd
}

// --- Output helpers ---

func outputJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// planView is the machine-readable plan shape.
func planView(p *decompose.Plan) map[string]any {
	tasks := make([]*task.Node, 0, len(p.Order))
	for _, id := range p.Order {
		tasks = append(tasks, p.Graph.Nodes[id])
	}
	return map[string]any{
		"id":         p.ID,
		"request":    p.Request,
		"subject":    p.Subject,
		"created_at": p.CreatedAt,
		"tasks":      tasks,
		"waves":      p.Waves,
	}
}

func printPlan(p *decompose.Plan) {
	fmt.Printf("%s %s\n", ui.BoldCyan("Execution Plan"), ui.Dim(p.ID))
	fmt.Println(ui.Cyan("═══════════════════════════"))
	fmt.Printf("Request: %s\n", p.Request)
	fmt.Printf("Subject: %s\n", ui.Bold(p.Subject))
	fmt.Printf("Tasks:   %s in %s waves\n", ui.Bold(p.Graph.TaskCount()), ui.Bold(len(p.Waves)))
	fmt.Println()

	for _, wave := range p.Waves {
		depStr := ui.Dim("independent")
		if wave.Index > 0 {
			depStr = ui.Dim(fmt.Sprintf("after wave %d", wave.Index))
		}
		fmt.Printf("%s %d (%d tasks, %s):\n", ui.BoldWhite("Wave"), wave.Index+1, len(wave.TaskIDs), depStr)
		for _, id := range wave.TaskIDs {
			n := p.Graph.Nodes[id]
			par := ""
			if n.Parallelizable {
				par = "  " + ui.BoldYellow("∥")
			}
			fmt.Printf("  %s  %s %s%s\n", ui.BoldMagenta(n.ID), n.Description, ui.Dim("["+n.OwnerDomain+"]"), par)
			if n.DoneCriterion != "" {
				fmt.Printf("      %s %s\n", ui.Dim("done:"), ui.Dim(n.DoneCriterion))
			}
		}
		fmt.Println()
	}
}

func printReport(r *review.Report) {
	fmt.Printf("\n%s %d findings", ui.BoldCyan("Review Report:"), r.Total())
	var parts []string
	for _, sev := range []review.Severity{review.SeverityHigh, review.SeverityMed, review.SeverityLow} {
		if n := r.Counts[sev]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, ui.Severity(string(sev))))
		}
	}
	if len(parts) > 0 {
		fmt.Printf(" (%s)", strings.Join(parts, ", "))
	}
	fmt.Println()

	for _, domain := range r.Domains {
		fmt.Printf("\n  %s\n", ui.BoldMagenta(domain))
		for _, f := range r.ByDomain(domain) {
			fmt.Printf("    %s %s %s\n", ui.Severity(string(f.Severity)), ui.Dim(f.Location()), f.Message)
		}
	}
}
