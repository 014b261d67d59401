package eval

import (
	"github.com/archlayer/pkgforge/diag"
	"github.com/archlayer/pkgforge/recipe/stage0"
	"github.com/archlayer/pkgforge/recipe/stage1"
	"github.com/archlayer/pkgforge/template"
)

func sourceLeaf(eng *template.Engine, ctx *template.Context, v stage0.Value[stage0.Source]) (stage1.Source, bool, error) {
	s := v.Concrete
	out := stage1.Source{Span: s.Span}
	switch {
	case s.Git != nil:
		g, err := evalGitSource(eng, ctx, s.Git)
		if err != nil {
			return stage1.Source{}, false, err
		}
		out.Git = g
	case s.URL != nil:
		u, err := evalURLSource(eng, ctx, s.URL)
		if err != nil {
			return stage1.Source{}, false, err
		}
		out.URL = u
	case s.Path != nil:
		p, err := evalPathSource(eng, ctx, s.Path)
		if err != nil {
			return stage1.Source{}, false, err
		}
		out.Path = p
	default:
		return stage1.Source{}, false, diag.New(diag.KindEvaluation, s.Span, "source has no git/url/path variant set")
	}
	return out, true, nil
}

func evalGitSource(eng *template.Engine, ctx *template.Context, g *stage0.GitSource) (*stage1.GitSource, error) {
	out := &stage1.GitSource{}
	var err error
	if out.URL, err = renderString(eng, ctx, g.URL); err != nil {
		return nil, err
	}
	if err := validateURL(out.URL, g.URL.Span); err != nil {
		return nil, err
	}
	if out.Rev, err = renderOptionalString(eng, ctx, g.Rev); err != nil {
		return nil, err
	}
	if out.Tag, err = renderOptionalString(eng, ctx, g.Tag); err != nil {
		return nil, err
	}
	if out.Branch, err = renderOptionalString(eng, ctx, g.Branch); err != nil {
		return nil, err
	}
	if g.Depth != nil {
		if out.Depth, err = renderInt(eng, ctx, *g.Depth); err != nil {
			return nil, err
		}
	}
	if out.Patches, err = resolveList(g.Patches, ctx, eng, stringLeaf); err != nil {
		return nil, err
	}
	if out.TargetDir, err = renderOptionalString(eng, ctx, g.TargetDir); err != nil {
		return nil, err
	}
	if out.LFS, err = renderBool(eng, ctx, g.LFS); err != nil {
		return nil, err
	}
	return out, nil
}

func evalURLSource(eng *template.Engine, ctx *template.Context, u *stage0.URLSource) (*stage1.URLSource, error) {
	out := &stage1.URLSource{}
	var err error
	if out.URLs, err = resolveList(u.URLs, ctx, eng, stringLeaf); err != nil {
		return nil, err
	}
	for _, url := range out.URLs {
		if err := validateURL(url, u.Span); err != nil {
			return nil, err
		}
	}
	if out.SHA256, err = renderOptionalString(eng, ctx, u.SHA256); err != nil {
		return nil, err
	}
	if out.SHA256 != "" {
		if err := validateChecksumHex("sha256", out.SHA256, 64, u.Span); err != nil {
			return nil, err
		}
	}
	if out.MD5, err = renderOptionalString(eng, ctx, u.MD5); err != nil {
		return nil, err
	}
	if out.MD5 != "" {
		if err := validateChecksumHex("md5", out.MD5, 32, u.Span); err != nil {
			return nil, err
		}
	}
	if out.FileName, err = renderOptionalString(eng, ctx, u.FileName); err != nil {
		return nil, err
	}
	if out.Patches, err = resolveList(u.Patches, ctx, eng, stringLeaf); err != nil {
		return nil, err
	}
	if out.TargetDir, err = renderOptionalString(eng, ctx, u.TargetDir); err != nil {
		return nil, err
	}
	if u.Attestation != nil {
		out.Attestation, err = evalAttestation(eng, ctx, u.Attestation)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func evalAttestation(eng *template.Engine, ctx *template.Context, a *stage0.Attestation) (*stage1.Attestation, error) {
	out := &stage1.Attestation{}
	var err error
	if out.BundleURL, err = renderOptionalString(eng, ctx, a.BundleURL); err != nil {
		return nil, err
	}
	for _, ic := range a.IdentityChecks {
		issuer, err := renderString(eng, ctx, ic.Issuer)
		if err != nil {
			return nil, err
		}
		identity, err := renderString(eng, ctx, ic.Identity)
		if err != nil {
			return nil, err
		}
		out.IdentityChecks = append(out.IdentityChecks, stage1.IdentityCheck{Issuer: issuer, Identity: identity})
	}
	return out, nil
}

func evalPathSource(eng *template.Engine, ctx *template.Context, p *stage0.PathSource) (*stage1.PathSource, error) {
	out := &stage1.PathSource{}
	var err error
	if out.Path, err = renderString(eng, ctx, p.Path); err != nil {
		return nil, err
	}
	if out.SHA256, err = renderOptionalString(eng, ctx, p.SHA256); err != nil {
		return nil, err
	}
	if out.MD5, err = renderOptionalString(eng, ctx, p.MD5); err != nil {
		return nil, err
	}
	if out.Patches, err = resolveList(p.Patches, ctx, eng, stringLeaf); err != nil {
		return nil, err
	}
	if out.TargetDir, err = renderOptionalString(eng, ctx, p.TargetDir); err != nil {
		return nil, err
	}
	if out.FileName, err = renderOptionalString(eng, ctx, p.FileName); err != nil {
		return nil, err
	}
	if out.UseGitignore, err = renderBool(eng, ctx, p.UseGitignore); err != nil {
		return nil, err
	}
	if out.Filter, err = resolveList(p.Filter, ctx, eng, stringLeaf); err != nil {
		return nil, err
	}
	return out, nil
}

func renderOptionalString(eng *template.Engine, ctx *template.Context, v *stage0.Value[string]) (string, error) {
	if v == nil {
		return "", nil
	}
	return renderString(eng, ctx, *v)
}
