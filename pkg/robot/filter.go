package robot

// SuitesWithTests returns, in pre-order, every suite under root (root
// included) that directly contains at least one test. Suites that only
// contain other suites are skipped.
func SuitesWithTests(root *Suite) []*Suite {
	if root == nil {
		return nil
	}

	var suites []*Suite

	root.walk(func(s *Suite) {
		if len(s.Tests) > 0 {
			suites = append(suites, s)
		}
	})

	return suites
}
