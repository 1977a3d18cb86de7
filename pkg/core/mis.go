package core

// MISHeuristic weighs nf samples of density fPdf against ng samples of density gPdf
type MISHeuristic func(nf int, fPdf float64, ng int, gPdf float64) float64

// PowerHeuristic implements the power heuristic for MIS (β=2)
func PowerHeuristic(nf int, fPdf float64, ng int, gPdf float64) float64 {
	if fPdf == 0 {
		return 0
	}

	f := float64(nf) * fPdf
	g := float64(ng) * gPdf
	return (f * f) / (f*f + g*g)
}

// BalanceHeuristic implements the balance heuristic for MIS
func BalanceHeuristic(nf int, fPdf float64, ng int, gPdf float64) float64 {
	if fPdf == 0 {
		return 0
	}

	f := float64(nf) * fPdf
	g := float64(ng) * gPdf
	return f / (f + g)
}
