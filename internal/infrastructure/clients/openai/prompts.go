package openai

import (
	"fmt"
	"strings"

	"github.com/scriptcycle/rxrecommender/internal/domain/providers"
)

const advisorSystemPrompt = `You are a pharmacy fulfillment assistant. Given a prescription's required quantity and the orderable packages for a drug, confirm or improve the proposed package choice. Return ONLY valid JSON with this schema:
{
  "recommended_ndc": string (must be one of the listed candidate NDCs),
  "confidence": number (0.0 to 1.0),
  "reasoning": string (1-2 short sentences, dispensing-focused)
}
Prefer the smallest package that covers the required quantity. Consider waste from overfill and early-refill burden from underfill. Never invent an NDC and never include patient information.`

func buildAdvisorUserPrompt(req providers.AdvisorRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Drug: %s (RxCUI %s)\n", req.DrugName, req.Rxcui)
	if req.DosageForm != "" {
		fmt.Fprintf(&b, "Dosage form: %s\n", req.DosageForm)
	}
	fmt.Fprintf(&b, "Required quantity: %g\n", req.RequiredQuantity)
	fmt.Fprintf(&b, "Proposed package: NDC %s, %g %s\n",
		req.Selection.Selected.NDC,
		req.Selection.Selected.Size.Quantity,
		req.Selection.Selected.Size.Unit,
	)

	b.WriteString("Candidate packages:\n")
	for _, pkg := range req.Candidates {
		fmt.Fprintf(&b, "- NDC %s: %g %s\n", pkg.NDC, pkg.Size.Quantity, pkg.Size.Unit)
	}

	return b.String()
}
