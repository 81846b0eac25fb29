package orderbook

// Red-black tree over Price keys.
// - Sentinel nil node to simplify rotations & fixups.
// - O(log n) Insert/Remove/Next/Prev; First/Last walk one spine.
// - Duplicate keys are rejected; the empty price is never stored.

type color uint8

const (
	red   color = 0
	black color = 1
)

type treeNode struct {
	key    Price
	color  color
	left   *treeNode
	right  *treeNode
	parent *treeNode
}

// PriceTree keeps the set of open price levels for one (collection, side)
// pair sorted by price.
type PriceTree struct {
	root *treeNode
	nil  *treeNode // sentinel (black)
	size int
}

// NewPriceTree constructs an empty tree with a black sentinel.
func NewPriceTree() *PriceTree {
	nilNode := &treeNode{color: black}
	return &PriceTree{
		root: nilNode,
		nil:  nilNode,
		size: 0,
	}
}

// Size returns the number of price levels currently indexed.
func (t *PriceTree) Size() int { return t.size }

// Exists reports whether k is indexed.
func (t *PriceTree) Exists(k Price) bool {
	return t.searchNode(k) != t.nil
}

// First returns the lowest price, or the empty sentinel if the tree is
// empty.
func (t *PriceTree) First() Price {
	n := t.minNode(t.root)
	if n == t.nil {
		return EmptyPrice
	}
	return n.key
}

// Last returns the highest price, or the empty sentinel if the tree is
// empty.
func (t *PriceTree) Last() Price {
	n := t.maxNode(t.root)
	if n == t.nil {
		return EmptyPrice
	}
	return n.key
}

// Next returns the in-order successor of k, or the empty sentinel when k
// is the maximum.
func (t *PriceTree) Next(k Price) (Price, error) {
	if k.IsEmpty() {
		return EmptyPrice, ErrEmptyKey
	}
	n := t.searchNode(k)
	if n == t.nil {
		return EmptyPrice, ErrKeyNotFound
	}
	s := t.next(n)
	if s == t.nil {
		return EmptyPrice, nil
	}
	return s.key, nil
}

// Prev returns the in-order predecessor of k, or the empty sentinel when
// k is the minimum.
func (t *PriceTree) Prev(k Price) (Price, error) {
	if k.IsEmpty() {
		return EmptyPrice, ErrEmptyKey
	}
	n := t.searchNode(k)
	if n == t.nil {
		return EmptyPrice, ErrKeyNotFound
	}
	p := t.prev(n)
	if p == t.nil {
		return EmptyPrice, nil
	}
	return p.key, nil
}

// NextAfter returns the lowest indexed price strictly greater than k.
// Unlike Next, k itself does not have to be indexed. Returns the empty
// sentinel when no such price exists.
func (t *PriceTree) NextAfter(k Price) (Price, error) {
	if k.IsEmpty() {
		return EmptyPrice, ErrEmptyKey
	}
	best := t.nil
	for n := t.root; n != t.nil; {
		if k.Lt(n.key) {
			best = n
			n = n.left
		} else {
			n = n.right
		}
	}
	if best == t.nil {
		return EmptyPrice, nil
	}
	return best.key, nil
}

// PrevBefore returns the highest indexed price strictly lower than k.
// Unlike Prev, k itself does not have to be indexed. Returns the empty
// sentinel when no such price exists.
func (t *PriceTree) PrevBefore(k Price) (Price, error) {
	if k.IsEmpty() {
		return EmptyPrice, ErrEmptyKey
	}
	best := t.nil
	for n := t.root; n != t.nil; {
		if k.Gt(n.key) {
			best = n
			n = n.right
		} else {
			n = n.left
		}
	}
	if best == t.nil {
		return EmptyPrice, nil
	}
	return best.key, nil
}

// Insert indexes k. The key must be non-empty and not already present.
func (t *PriceTree) Insert(k Price) error {
	if k.IsEmpty() {
		return ErrEmptyKey
	}

	// Standard BST insert search.
	y := t.nil
	x := t.root
	for x != t.nil {
		y = x
		switch k.Cmp(x.key) {
		case -1:
			x = x.left
		case 1:
			x = x.right
		default:
			return ErrDuplicateKey
		}
	}

	z := &treeNode{
		key:    k,
		color:  red, // new insertions start red
		left:   t.nil,
		right:  t.nil,
		parent: y,
	}

	if y == t.nil {
		t.root = z
	} else if k.Lt(y.key) {
		y.left = z
	} else {
		y.right = z
	}
	t.insertFixup(z)
	t.size++
	return nil
}

// Remove deletes k from the index.
func (t *PriceTree) Remove(k Price) error {
	if k.IsEmpty() {
		return ErrEmptyKey
	}
	z := t.searchNode(k)
	if z == t.nil {
		return ErrKeyNotFound
	}
	t.deleteNode(z)
	t.size--
	return nil
}

/******************** Internal helpers ********************/

func (t *PriceTree) searchNode(k Price) *treeNode {
	n := t.root
	for n != t.nil {
		switch k.Cmp(n.key) {
		case -1:
			n = n.left
		case 1:
			n = n.right
		default:
			return n
		}
	}
	return t.nil
}

func (t *PriceTree) minNode(n *treeNode) *treeNode {
	if n == t.nil {
		return t.nil
	}
	for n.left != t.nil {
		n = n.left
	}
	return n
}

func (t *PriceTree) maxNode(n *treeNode) *treeNode {
	if n == t.nil {
		return t.nil
	}
	for n.right != t.nil {
		n = n.right
	}
	return n
}

// In-order successor.
func (t *PriceTree) next(n *treeNode) *treeNode {
	if n.right != t.nil {
		return t.minNode(n.right)
	}
	p := n.parent
	for p != t.nil && n == p.right {
		n = p
		p = p.parent
	}
	return p
}

// In-order predecessor.
func (t *PriceTree) prev(n *treeNode) *treeNode {
	if n.left != t.nil {
		return t.maxNode(n.left)
	}
	p := n.parent
	for p != t.nil && n == p.left {
		n = p
		p = p.parent
	}
	return p
}

/******************** Rotations & Fixups ********************/

func (t *PriceTree) leftRotate(x *treeNode) {
	y := x.right
	x.right = y.left
	if y.left != t.nil {
		y.left.parent = x
	}
	y.parent = x.parent
	if x.parent == t.nil {
		t.root = y
	} else if x == x.parent.left {
		x.parent.left = y
	} else {
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *PriceTree) rightRotate(y *treeNode) {
	x := y.left
	y.left = x.right
	if x.right != t.nil {
		x.right.parent = y
	}
	x.parent = y.parent
	if y.parent == t.nil {
		t.root = x
	} else if y == y.parent.right {
		y.parent.right = x
	} else {
		y.parent.left = x
	}
	x.right = y
	y.parent = x
}

func (t *PriceTree) insertFixup(z *treeNode) {
	for z.parent.color == red {
		if z.parent == z.parent.parent.left {
			y := z.parent.parent.right // uncle
			if y.color == red {
				// Case 1
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.right {
					// Case 2
					z = z.parent
					t.leftRotate(z)
				}
				// Case 3
				z.parent.color = black
				z.parent.parent.color = red
				t.rightRotate(z.parent.parent)
			}
		} else {
			// mirror cases
			y := z.parent.parent.left // uncle
			if y.color == red {
				// Case 1
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.left {
					// Case 2
					z = z.parent
					t.rightRotate(z)
				}
				// Case 3
				z.parent.color = black
				z.parent.parent.color = red
				t.leftRotate(z.parent.parent)
			}
		}
	}
	t.root.color = black
}

func (t *PriceTree) transplant(u, v *treeNode) {
	if u.parent == t.nil {
		t.root = v
	} else if u == u.parent.left {
		u.parent.left = v
	} else {
		u.parent.right = v
	}
	v.parent = u.parent
}

// deleteNode splices z out. In the two-child case the in-order successor
// is spliced out of its own position and relabeled to take z's place,
// inheriting z's color and both child links.
func (t *PriceTree) deleteNode(z *treeNode) {
	y := z
	yOrigColor := y.color
	var x *treeNode

	if z.left == t.nil {
		x = z.right
		t.transplant(z, z.right)
	} else if z.right == t.nil {
		x = z.left
		t.transplant(z, z.left)
	} else {
		y = t.minNode(z.right) // successor
		yOrigColor = y.color
		x = y.right
		if y.parent == z {
			x.parent = y
		} else {
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}

	if yOrigColor == black {
		t.deleteFixup(x)
	}
}

func (t *PriceTree) deleteFixup(x *treeNode) {
	for x != t.root && x.color == black {
		if x == x.parent.left {
			w := x.parent.right
			if w.color == red {
				// Case 1
				w.color = black
				x.parent.color = red
				t.leftRotate(x.parent)
				w = x.parent.right
			}
			if w.left.color == black && w.right.color == black {
				// Case 2
				w.color = red
				x = x.parent
			} else {
				if w.right.color == black {
					// Case 3
					w.left.color = black
					w.color = red
					t.rightRotate(w)
					w = x.parent.right
				}
				// Case 4
				w.color = x.parent.color
				x.parent.color = black
				w.right.color = black
				t.leftRotate(x.parent)
				x = t.root
			}
		} else {
			// mirror cases
			w := x.parent.left
			if w.color == red {
				// Case 1
				w.color = black
				x.parent.color = red
				t.rightRotate(x.parent)
				w = x.parent.left
			}
			if w.right.color == black && w.left.color == black {
				// Case 2
				w.color = red
				x = x.parent
			} else {
				if w.left.color == black {
					// Case 3
					w.right.color = black
					w.color = red
					t.leftRotate(w)
					w = x.parent.left
				}
				// Case 4
				w.color = x.parent.color
				x.parent.color = black
				w.left.color = black
				t.rightRotate(x.parent)
				x = t.root
			}
		}
	}
	x.color = black
}
