// sheetdump prints the raw contents of a sheet vault: every revision
// of every sheet, either as a full snapshot or as the difference set
// stored in the patch. Useful for inspecting what the TUI built.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/davecgh/go-spew/spew"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/sheetdiff-project/sheetdiff/internal/service"
	"github.com/sheetdiff-project/sheetdiff/internal/sheet"
	"github.com/sheetdiff-project/sheetdiff/internal/store"
	bboltStore "github.com/sheetdiff-project/sheetdiff/internal/store/bbolt"
	"github.com/sheetdiff-project/sheetdiff/internal/util"
)

func main() {
	var (
		flagVaultFile  string
		flagFilterExpr string
		flagVerbose    bool

		flagUIDs util.StringSliceFlag
	)
	flag.StringVar(&flagVaultFile, "vault", "output.vault", "Vault file to dump")
	flag.StringVar(&flagFilterExpr, "filter-expr", "All()", "Expression to filter the sheets to dump")
	flag.BoolVar(&flagVerbose, "verbose", false, "Dump full snapshot data, not only the revision headers")
	flag.Var(&flagUIDs, "uid", "Sheet UID to dump (can be specified multiple times)")
	flag.Parse()

	log.Println("Compiling expression:", flagFilterExpr, "...")
	program, err := expr.Compile(flagFilterExpr, expr.Env(sheet.Env{}), expr.AsBool())
	if err != nil {
		log.Fatalf("Error compiling expression: %v", err)
	}

	vault, err := bboltStore.New(flagVaultFile, nil, false)
	if err != nil {
		log.Fatalf("Error opening vault: %v", err)
	}
	defer func(vault store.SheetStore) {
		_ = vault.Close()
	}(vault)

	svc := service.NewVaultService(vault, 0, false)

	ctx := context.Background()
	uids, err := vault.ListUIDs(ctx)
	if err != nil {
		log.Fatalf("Error listing sheets: %v", err)
	}

	for _, uid := range uids {
		if len(flagUIDs) > 0 && !contains(flagUIDs, uid) {
			continue
		}
		if err := dumpSheet(ctx, vault, svc, program, uid, flagVerbose); err != nil {
			log.Printf("[ERROR] dumping %s: %v", uid, err)
		}
	}
}

func dumpSheet(
	ctx context.Context,
	vault store.SheetStore,
	svc *service.VaultService,
	program *vm.Program,
	uid string,
	verbose bool,
) error {
	latest, err := vault.GetLatestRevision(ctx, uid)
	if err != nil {
		return fmt.Errorf("latest revision: %w", err)
	}

	state, err := svc.Restore(ctx, uid, latest)
	if err != nil {
		return fmt.Errorf("restoring latest state: %w", err)
	}

	header := headerOf(ctx, vault, uid, latest)
	pass, err := expr.Run(program, sheet.Env{Sheet: &sheet.Sheet{
		UID:  uid,
		Name: header.name,
		Kind: header.kind,
		Data: state,
	}})
	if err != nil {
		return fmt.Errorf("running filter expression: %w", err)
	}
	if !pass.(bool) {
		return nil
	}

	fmt.Printf("== %s (%s, %q): %d revision(s)\n", uid, header.kind, header.name, uint64(latest)+1)

	for rev := store.RevisionID(0); rev <= latest; rev++ {
		if snap, snapErr := vault.GetSnapshot(ctx, uid, rev); snapErr == nil {
			fmt.Printf("  %s  snapshot  %s\n", rev, snap.Time.Format("02.01.2006 15:04:05"))
			if verbose {
				spew.Dump(snap.Data)
			}
			continue
		}
		patch, patchErr := vault.GetPatch(ctx, uid, rev)
		if patchErr != nil {
			return fmt.Errorf("broken chain at %s: %w", rev, patchErr)
		}
		fmt.Printf("  %s  patch     %s  (%d change(s))\n",
			rev, patch.Time.Format("02.01.2006 15:04:05"), len(patch.Changes))
		spew.Dump(patch.Changes)
	}
	return nil
}

type sheetHeader struct {
	name, kind string
}

// headerOf walks back from [latest] to the nearest snapshot, which is
// where the sheet's name and kind are stored.
func headerOf(ctx context.Context, vault store.SheetStore, uid string, latest store.RevisionID) sheetHeader {
	cur := latest
	for {
		if snap, err := vault.GetSnapshot(ctx, uid, cur); err == nil {
			return sheetHeader{name: snap.Name, kind: snap.Kind}
		}
		p, err := vault.GetPatch(ctx, uid, cur)
		if err != nil {
			return sheetHeader{}
		}
		cur = p.PreviousID
	}
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
