package compiler

// CollapseLabels merges runs of adjacent labels into the last label of each
// run and retargets every jump that referred to a dropped label. The input
// is not modified. Applying it to its own result returns an equal sequence.
func CollapseLabels(p *Postfix) (*Postfix, error) {
	// 1. Map each label of a run to the label that closes the run
	alias := make(map[LabelID]LabelID)
	for i := 0; i < len(p.Items); i++ {
		if p.Items[i].Type != LABEL {
			continue
		}
		j := i
		for j+1 < len(p.Items) && p.Items[j+1].Type == LABEL {
			j++
		}
		survivor := p.Items[j].Target
		for k := i; k < j; k++ {
			alias[p.Items[k].Target] = survivor
		}
		i = j
	}

	// 2. Rebuild the sequence without the dropped labels
	items := make([]Token, 0, len(p.Items)-len(alias))
	for _, t := range p.Items {
		switch t.Type {
		case LABEL:
			if _, dropped := alias[t.Target]; dropped {
				continue
			}
		case JUMP:
			if to, ok := alias[t.Target]; ok {
				t.Target = to
			}
		}
		items = append(items, t)
	}

	// 3. Re-index and check that nothing was left dangling
	out, err := newPostfix(items)
	if err != nil {
		return nil, err
	}
	if err := out.validate(); err != nil {
		return nil, err
	}
	return out, nil
}
