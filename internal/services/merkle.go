package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/upiguard/upiguard/internal/models"
)

// MerkleTree is built once from a fixed list of leaf hashes
type MerkleTree struct {
	leaves []string
	layers [][]string
	root   string
}

// NewMerkleTree builds the tree over hex-encoded leaf hashes
func NewMerkleTree(leaves []string) *MerkleTree {
	t := &MerkleTree{leaves: append([]string(nil), leaves...)}
	t.build()
	return t
}

// Root returns the Merkle root, or "" for an empty tree
func (t *MerkleTree) Root() string {
	return t.root
}

// LeafCount returns the number of leaves
func (t *MerkleTree) LeafCount() int {
	return len(t.leaves)
}

// Proof generates the inclusion proof for the given leaf index
func (t *MerkleTree) Proof(index int) (*models.MerkleProof, error) {
	if index < 0 || index >= len(t.leaves) {
		return nil, fmt.Errorf("index %d out of range (0-%d)", index, len(t.leaves)-1)
	}

	proof := &models.MerkleProof{
		LeafHash: t.leaves[index],
		Root:     t.root,
		Index:    index,
		Proof:    make([]models.ProofStep, 0),
	}

	currentIndex := index
	for i := 0; i < len(t.layers)-1; i++ {
		layer := t.layers[i]
		isRight := currentIndex%2 == 1
		siblingIndex := currentIndex + 1
		if isRight {
			siblingIndex = currentIndex - 1
		}

		// an unpaired last node is hashed with itself
		sibling := layer[currentIndex]
		if siblingIndex < len(layer) {
			sibling = layer[siblingIndex]
		}
		position := "right"
		if isRight {
			position = "left"
		}
		proof.Proof = append(proof.Proof, models.ProofStep{Hash: sibling, Position: position})

		currentIndex /= 2
	}

	proof.Verified = VerifyProof(proof.LeafHash, proof.Root, proof.Proof)
	return proof, nil
}

// VerifyProof recomputes the root from a leaf and its proof steps
func VerifyProof(leaf, root string, steps []models.ProofStep) bool {
	if leaf == "" || root == "" {
		return false
	}
	current := leaf
	for _, step := range steps {
		switch step.Position {
		case "left":
			current = hashPair(step.Hash, current)
		case "right":
			current = hashPair(current, step.Hash)
		default:
			return false
		}
	}
	return current == root
}

func (t *MerkleTree) build() {
	if len(t.leaves) == 0 {
		t.root = ""
		t.layers = nil
		return
	}

	currentLayer := make([]string, len(t.leaves))
	copy(currentLayer, t.leaves)
	t.layers = [][]string{currentLayer}

	for len(currentLayer) > 1 {
		nextLayer := make([]string, 0, (len(currentLayer)+1)/2)
		for i := 0; i < len(currentLayer); i += 2 {
			left := currentLayer[i]
			right := left
			if i+1 < len(currentLayer) {
				right = currentLayer[i+1]
			}
			nextLayer = append(nextLayer, hashPair(left, right))
		}
		t.layers = append(t.layers, nextLayer)
		currentLayer = nextLayer
	}

	t.root = currentLayer[0]
}

// hashPair combines and hashes two nodes
func hashPair(left, right string) string {
	h := sha256.New()
	h.Write([]byte(left + right))
	return hex.EncodeToString(h.Sum(nil))
}

// EvidenceManifest digests a report's evidence in upload order so the
// bundle handed to investigators can be checked file by file
func (s *ReportService) EvidenceManifest(ctx context.Context, userID, reportID uuid.UUID) (*models.EvidenceManifest, error) {
	files, err := s.GetEvidenceFiles(ctx, userID, reportID)
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if a.UploadedAt.Equal(b.UploadedAt) {
			return a.ID.String() < b.ID.String()
		}
		return a.UploadedAt.Before(b.UploadedAt)
	})

	leaves := make([]string, len(files))
	for i, f := range files {
		leaves[i] = f.Checksum
	}
	tree := NewMerkleTree(leaves)

	manifest := &models.EvidenceManifest{
		ReportID:  reportID,
		Root:      tree.Root(),
		LeafCount: tree.LeafCount(),
		Files:     make([]models.ManifestEntry, 0, len(files)),
	}
	for i, f := range files {
		proof, err := tree.Proof(i)
		if err != nil {
			return nil, err
		}
		manifest.Files = append(manifest.Files, models.ManifestEntry{
			FileID:   f.ID,
			FileName: f.FileName,
			Checksum: f.Checksum,
			Proof:    proof.Proof,
		})
	}
	return manifest, nil
}
