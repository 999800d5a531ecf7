package credibility

import "github.com/pbriand/verifai/internal/model"

// Per-tier weights of the built-in table.
const (
	weightGovernment   = 0.95
	weightAcademic     = 0.90
	weightFactChecker  = 0.88
	weightSpecialized  = 0.85
	weightPremiumMedia = 0.82
	weightEncyclopedia = 0.78
	weightBlocked      = 0.10

	// DefaultWeight applies to any domain absent from the table.
	DefaultWeight = 0.25
)

// defaultTable returns the built-in domain rules. Patterns match exactly or
// as dot-boundary suffixes, so "gouv.fr" also covers "insee.gouv.fr".
func defaultTable() []model.DomainRule {
	entries := []struct {
		tier    model.Tier
		weight  float64
		domains []string
	}{
		{model.TierGovernment, weightGovernment, []string{
			// France
			"gouv.fr", "service-public.fr", "insee.fr", "vie-publique.fr",
			"assemblee-nationale.fr", "senat.fr", "gouvernement.fr",
			// Europe
			"europa.eu", "europarl.europa.eu", "ecb.europa.eu",
			// UN and affiliates
			"un.org", "who.int", "unicef.org", "unesco.org", "unhcr.org",
			"iaea.org", "fao.org",
			// USA and others
			"cdc.gov", "nasa.gov", "usgs.gov", "noaa.gov", "nih.gov",
			"gov.uk", "nhs.uk", "canada.ca", "admin.ch",
		}},
		{model.TierAcademic, weightAcademic, []string{
			"nature.com", "science.org", "cell.com", "thelancet.com",
			"nejm.org", "bmj.com", "sciencedirect.com", "plos.org",
			"pubmed.ncbi.nlm.nih.gov", "arxiv.org", "hal.archives-ouvertes.fr",
			"cnrs.fr", "inria.fr", "inserm.fr", "cea.fr", "cnes.fr",
			"pasteur.fr", "ined.fr",
			"mit.edu", "stanford.edu", "harvard.edu", "ox.ac.uk", "cam.ac.uk",
			"eth.ch", "epfl.ch",
		}},
		{model.TierFactChecker, weightFactChecker, []string{
			"factcheck.org", "snopes.com", "politifact.com", "fullfact.org",
			"climatefeedback.org",
		}},
		{model.TierSpecialized, weightSpecialized, []string{
			"ipcc.ch", "mayoclinic.org", "cochrane.org", "cancer.org",
			"esa.int", "imf.org", "worldbank.org", "oecd.org", "wto.org",
			"amnesty.org", "hrw.org", "icrc.org", "unep.org", "iucn.org",
		}},
		{model.TierPremiumMedia, weightPremiumMedia, []string{
			"reuters.com", "apnews.com", "afp.com", "dpa.com",
			"lemonde.fr", "lefigaro.fr", "lesechos.fr", "mediapart.fr",
			"courrierinternational.com",
			"bbc.com", "bbc.co.uk", "theguardian.com", "nytimes.com",
			"washingtonpost.com", "wsj.com", "ft.com", "economist.com",
			"france24.com", "rfi.fr", "francetvinfo.fr",
		}},
		{model.TierEncyclopedia, weightEncyclopedia, []string{
			"wikipedia.org", "britannica.com", "larousse.fr",
			"universalis.fr", "wikimedia.org", "wiktionary.org",
		}},
		{model.TierBlocked, weightBlocked, []string{
			"4chan.org", "infowars.com", "naturalnews.com",
			"globalresearch.ca", "zerohedge.com",
			// Social networks are not primary sources
			"facebook.com", "twitter.com", "x.com", "instagram.com",
			"tiktok.com",
		}},
	}

	var rules []model.DomainRule
	for _, e := range entries {
		for _, d := range e.domains {
			rules = append(rules, model.DomainRule{Pattern: d, Tier: e.tier, Weight: e.weight})
		}
	}
	return rules
}
